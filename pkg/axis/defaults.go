package axis

// Standard dataset domains: 90 depth levels in meters, monthly snapshots from
// September 2011 to November 2012, and the four published attributes.
var (
	DefaultLevels = []Level{
		0.5, 1.6, 2.8, 4.2, 5.8, 7.6, 9.7, 12, 14.7, 17.7,
		21.1, 25, 29.3, 34.2, 39.7, 45.8, 52.7, 60.3, 68.7, 78,
		88.2, 99.4, 112, 125, 139, 155, 172, 190, 209, 230,
		252, 275, 300, 325, 352, 381, 410, 441, 473, 507,
		541, 576, 613, 651, 690, 730, 771, 813, 856, 900,
		946, 992, 1040, 1089, 1140, 1192, 1246, 1302, 1359, 1418,
		1480, 1544, 1611, 1681, 1754, 1830, 1911, 1996, 2086, 2181,
		2281, 2389, 2503, 2626, 2757, 2898, 3050, 3215, 3392, 3584,
		3792, 4019, 4266, 4535, 4828, 5148, 5499, 5882, 6301, 6760,
	}

	DefaultTimestamps = []string{
		"2011-09-13-0", "2011-10-13-0", "2011-11-13-0", "2011-12-13-0",
		"2012-01-13-0", "2012-02-13-0", "2012-03-13-0", "2012-04-13-0",
		"2012-05-13-0", "2012-06-13-0", "2012-07-13-0", "2012-08-13-0",
		"2012-09-13-0", "2012-10-13-0", "2012-11-13-0",
	}

	DefaultAttributes = []Attribute{"theta", "salt", "vorticity_uvw", "uv"}
)

// ParseTimestamps parses a list of "YYYY-MM-DD-H" strings.
func ParseTimestamps(values []string) ([]Timestamp, error) {
	out := make([]Timestamp, 0, len(values))
	for _, v := range values {
		ts, err := ParseTimestamp(v)
		if err != nil {
			return nil, err
		}
		out = append(out, ts)
	}
	return out, nil
}

// Default returns the standard dataset coordinate system.
func Default() *Axes {
	ts, err := ParseTimestamps(DefaultTimestamps)
	if err != nil {
		panic(err)
	}
	a, err := New(DefaultLevels, ts, DefaultAttributes)
	if err != nil {
		panic(err)
	}
	return a
}
