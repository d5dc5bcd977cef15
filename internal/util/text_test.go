package util

import "testing"

func TestCollapseWhitespace(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain text",
			input: "hello world",
			want:  "hello world",
		},
		{
			name:  "newlines and carriage returns",
			input: "hello\r\nworld\nagain\r",
			want:  "hello world again",
		},
		{
			name:  "repeated spaces and tabs",
			input: "  hello\t\t world  ",
			want:  "hello world",
		},
		{
			name:  "empty",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CollapseWhitespace(tt.input)
			if got != tt.want {
				t.Fatalf("unexpected value: got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("abcdef", 4, "..."); got != "abcd..." {
		t.Fatalf("unexpected truncation: %q", got)
	}
	if got := Truncate("abc", 4, "..."); got != "abc" {
		t.Fatalf("short input should be untouched: %q", got)
	}
	if got := Truncate("abc", 0, "..."); got != "abc" {
		t.Fatalf("zero limit should be untouched: %q", got)
	}
}
