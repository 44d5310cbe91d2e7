package identity

import "testing"

func TestValidPIN(t *testing.T) {
	valid := []string{"12345", "00000", "98765"}
	for _, pin := range valid {
		if !ValidPIN(pin) {
			t.Fatalf("ValidPIN(%q) = false", pin)
		}
	}

	invalid := []string{"", "1234", "123456", "12a45", "12 45", "１２３４５"}
	for _, pin := range invalid {
		if ValidPIN(pin) {
			t.Fatalf("ValidPIN(%q) = true", pin)
		}
	}
}

func TestParseRole(t *testing.T) {
	cases := []struct {
		in   string
		want Role
	}{
		{"User", RoleUser},
		{"Agent", RoleAgent},
		{"Admin", RoleAdmin},
		{"agent", RoleUser},
		{"", RoleUser},
		{"superuser", RoleUser},
	}
	for _, tc := range cases {
		if got := ParseRole(tc.in); got != tc.want {
			t.Fatalf("ParseRole(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
