package accounts

import "testing"

func TestAssignment(t *testing.T) {
	cases := []struct {
		account string
		serial  string
		want    string
		ok      bool
	}{
		{"3-VEENDELO", "5390", "VEEN5390", true},
		{"3-VEENDELO", "'5390.0'", "VEEN5390", true},
		{"3-VEENDELO", " 5390 ", "VEEN5390", true},
		{"1-TODOENCARGO-CO", "118", "TDC118", true},
		{"4-MEGA TIENDAS PERUANAS", "77", "MGA-PE77", true},
		{"9-DOES-NOT-EXIST", "500", "500", true}, // degraded fallback
		{"3-VEENDELO", "", "", false},
		{"3-VEENDELO", "nan", "", false},
	}
	for _, tc := range cases {
		got, ok := Assignment(tc.account, tc.serial)
		if ok != tc.ok || got != tc.want {
			t.Errorf("Assignment(%q, %q) = (%q, %v), want (%q, %v)",
				tc.account, tc.serial, got, ok, tc.want, tc.ok)
		}
	}
}

func TestEveryIdentityHasCountryAndFamily(t *testing.T) {
	for _, id := range All {
		if id.Country() == "" {
			t.Errorf("%s has no country", id)
		}
		if id.Family() == FamilyUnknown {
			t.Errorf("%s has no formula family", id)
		}
		if id.Prefix() == "" {
			t.Errorf("%s has no prefix", id)
		}
	}
}

func TestParseUnknown(t *testing.T) {
	if _, ok := Parse("SOMETHING ELSE"); ok {
		t.Fatal("expected unknown identity to fail Parse")
	}
	if Identity("SOMETHING ELSE").Family() != FamilyUnknown {
		t.Fatal("unknown identity must map to FamilyUnknown")
	}
}
