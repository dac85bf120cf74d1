package timeutil

import "testing"

func TestFormatTime(t *testing.T) {
	t.Parallel()

	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "0:00:00"},
		{9.7, "0:00:09"},
		{90, "0:01:30"},
		{3599, "0:59:59"},
		{4282, "1:11:22"},
		{-5, "0:00:00"},
	}
	for _, tt := range tests {
		if got := FormatTime(tt.seconds); got != tt.want {
			t.Errorf("FormatTime(%v) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestParseTime(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"90", 90, false},
		{"4.5", 4.5, false},
		{"1:30", 90, false},
		{"1:11:22", 4282, false},
		{"0:00", 0, false},
		{" 45 ", 45, false},
		{"-5", 0, true},
		{"1:-30", 0, true},
		{"1:2:3:4", 0, true},
		{"abc", 0, true},
		{"1:xx", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseTime(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseTime(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("ParseTime(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
