package geo

import (
	"strings"
	"testing"
)

func TestParseCRS(t *testing.T) {
	tests := []struct {
		in      string
		want    CRS
		wantErr bool
	}{
		{"", CRS{}, false},
		{"4326", CRS{EPSG: 4326}, false},
		{"EPSG:32633", CRS{EPSG: 32633}, false},
		{"epsg:3857", CRS{EPSG: 3857}, false},
		{"abc", CRS{}, true},
		{"-5", CRS{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCRS(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCRS(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseCRS(%q): got %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestCRS_Classification(t *testing.T) {
	tests := []struct {
		crs        CRS
		known      bool
		geographic bool
	}{
		{CRS{}, false, false},
		{EPSG(0), false, false},
		{EPSG(4326), true, true},
		{EPSG(4258), true, true},
		{EPSG(3857), true, false},
		{EPSG(32633), true, false},
		{EPSG(2056), true, false},
	}

	for _, tt := range tests {
		t.Run(tt.crs.String(), func(t *testing.T) {
			if tt.crs.Known() != tt.known {
				t.Errorf("Known: got %v, want %v", tt.crs.Known(), tt.known)
			}
			if tt.crs.IsGeographic() != tt.geographic {
				t.Errorf("IsGeographic: got %v, want %v", tt.crs.IsGeographic(), tt.geographic)
			}
		})
	}
}

func TestCRS_UTMZone(t *testing.T) {
	tests := []struct {
		epsg  int
		zone  int
		north bool
		ok    bool
	}{
		{32601, 1, true, true},
		{32633, 33, true, true},
		{32660, 60, true, true},
		{32701, 1, false, true},
		{32756, 56, false, true},
		{32661, 0, false, false},
		{4326, 0, false, false},
	}

	for _, tt := range tests {
		zone, north, ok := EPSG(tt.epsg).UTMZone()
		if zone != tt.zone || north != tt.north || ok != tt.ok {
			t.Errorf("EPSG:%d UTMZone: got (%d, %v, %v), want (%d, %v, %v)",
				tt.epsg, zone, north, ok, tt.zone, tt.north, tt.ok)
		}
	}
}

func TestCRS_WKT(t *testing.T) {
	wkt, ok := EPSG(32633).WKT()
	if !ok {
		t.Fatal("expected WKT for UTM 33N")
	}
	for _, want := range []string{"WGS_1984_UTM_Zone_33N", `"Central_Meridian",15.0`, `"False_Northing",0.0`} {
		if !strings.Contains(wkt, want) {
			t.Errorf("UTM 33N WKT missing %s: %s", want, wkt)
		}
	}

	wkt, ok = EPSG(32756).WKT()
	if !ok || !strings.Contains(wkt, `"False_Northing",10000000.0`) || !strings.Contains(wkt, `"Central_Meridian",153.0`) {
		t.Errorf("UTM 56S WKT wrong: %s", wkt)
	}

	if wkt, ok := EPSG(4326).WKT(); !ok || !strings.HasPrefix(wkt, "GEOGCS") {
		t.Errorf("WGS84 WKT wrong: %q", wkt)
	}
	if _, ok := EPSG(2056).WKT(); ok {
		t.Error("expected no WKT for EPSG:2056")
	}
}

func TestCRS_Name(t *testing.T) {
	if got := EPSG(32633).Name(); got != "WGS 84 / UTM zone 33N" {
		t.Errorf("Name: got %q", got)
	}
	if got := EPSG(31467).Name(); got != "EPSG:31467" {
		t.Errorf("Name fallback: got %q", got)
	}
}
