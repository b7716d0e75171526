package airquality

import "testing"

func TestLevelForAQIBands(t *testing.T) {
	cases := []struct {
		aqi  int
		want Level
	}{
		{0, LevelGood},
		{42, LevelGood},
		{50, LevelGood},
		{51, LevelModerate},
		{100, LevelModerate},
		{101, LevelSensitive},
		{150, LevelSensitive},
		{151, LevelUnhealthy},
		{200, LevelUnhealthy},
		{201, LevelVeryUnhealthy},
		{300, LevelVeryUnhealthy},
		{301, LevelHazardous},
		{500, LevelHazardous},
	}

	for _, tc := range cases {
		if got := LevelForAQI(tc.aqi); got != tc.want {
			t.Errorf("LevelForAQI(%d) = %q, want %q", tc.aqi, got, tc.want)
		}
	}
}

func TestPollutantName(t *testing.T) {
	cases := map[string]string{
		"p2": "PM2.5",
		"p1": "PM10",
		"o3": "Ozone",
		"n2": "NO2",
		"s2": "SO2",
		"co": "CO",
		"xx": "xx", // unknown codes pass through
	}

	for code, want := range cases {
		if got := PollutantName(code); got != want {
			t.Errorf("PollutantName(%q) = %q, want %q", code, got, want)
		}
	}

	if KnownPollutant("xx") {
		t.Error("KnownPollutant(\"xx\") = true, want false")
	}
	if !KnownPollutant("p2") {
		t.Error("KnownPollutant(\"p2\") = false, want true")
	}
}
