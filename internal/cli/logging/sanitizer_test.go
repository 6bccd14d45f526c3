package logging

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSanitizeCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "empty", args: nil, want: ""},
		{name: "plain", args: []string{"gcc", "-c", "src/main.c"}, want: "gcc -c src/main.c"},
		{name: "inline define", args: []string{"gcc", "-DAPI_TOKEN=abcd", "-DNDEBUG"}, want: "gcc -DAPI_TOKEN=*** -DNDEBUG"},
		{name: "separated value", args: []string{"uploader", "--password", "hunter2", "--host", "ci"}, want: "uploader --password *** --host ci"},
		{name: "dangling flag", args: []string{"signer", "--secret"}, want: "signer --secret ***"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeCommand(tt.args); got != tt.want {
				t.Fatalf("SanitizeCommand(%v) = %q, want %q", tt.args, got, tt.want)
			}
		})
	}
}

func TestSanitizeEnv(t *testing.T) {
	got := SanitizeEnv(map[string]string{
		"PATH":           "/usr/bin",
		"LICENSE_KEY":    "abc",
		"ARTIFACT_TOKEN": "xyz",
		"TARGET":         "arm",
	})
	want := map[string]string{
		"PATH":           "/usr/bin",
		"LICENSE_KEY":    "***",
		"ARTIFACT_TOKEN": "***",
		"TARGET":         "arm",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected env (-want +got):\n%s", diff)
	}
}

func TestSanitizeText(t *testing.T) {
	got := SanitizeText("load fragment failed: token=abc123 path=plugins/x")
	if got != "load fragment failed: token=*** path=plugins/x" {
		t.Fatalf("unexpected sanitized text %q", got)
	}
}
