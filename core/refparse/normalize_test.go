package refparse

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		lang Language
		want string
	}{
		{"lower and trim", "  John   3:16 ", English, "john 3:16"},
		{"dotted reference", "John.3.16", English, "john 3:16"},
		{"dotted verse", "john 3.16", English, "john 3:16"},
		{"spaced colon", "john 3 : 16", English, "john 3:16"},
		{"punctuation", "John, 3:16!", English, "john 3:16"},
		{"apostrophe", "let's read John 3", English, "john 3"},
		{"fillers", "Can you please show me the book of Romans 8", English, "romans 8"},
		{"filler inside word kept", "Numbers", English, "numbers"},
		{"korean fillers", "성경 요한복음 3장 찾아줘", Korean, "요한복음 3장"},
		{"korean particle", "요한복음을 펼쳐줘", Korean, "요한복음"},
		{"korean single syllable alias kept", "에", Korean, "에"},
		{"fullwidth colon", "요한복음 3：16", Korean, "요한복음 3:16"},
		{"empty", "", English, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalize(tt.in, tt.lang); got != tt.want {
				t.Errorf("normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		in   string
		want Language
	}{
		{"요한복음 3장 16절", Korean},
		{"사무엘", Korean},
		{"시편 23편을 읽어주세요", Korean},
		{"John 3:16", English},
		{"please open the gospel of john chapter three", English},
		{"gen 1 1", English},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := DetectLanguage(tt.in); got != tt.want {
				t.Errorf("DetectLanguage(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
