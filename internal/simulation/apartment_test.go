package simulation

import (
	"testing"
)

func testApartmentConfig() ApartmentConfig {
	return ApartmentConfig{
		MovementProb: 0.3,
		BurstMin:     1,
		BurstMax:     10,
		AmbientProb:  0.002,
		AmbientMin:   1,
		AmbientMax:   5,
	}
}

func secondPersonConfig() PersonConfig {
	cfg := testPersonConfig()
	cfg.Name = "bob"
	cfg.WeekdayOutside = []HourRange{{7, 16}}
	cfg.WeekendOutside = []HourRange{{9, 12}, {13, 20}}
	cfg.Sleep = HourRange{22, 6}
	return cfg
}

func TestApartmentWindowDoorOR(t *testing.T) {
	tl := testTimeline(t, 7)
	alice := newTestPerson(t, testPersonConfig(), 123)
	bob := newTestPerson(t, secondPersonConfig(), 23)

	apt, err := NewApartment(tl, []*Person{alice, bob}, testApartmentConfig(), 42)
	if err != nil {
		t.Fatalf("NewApartment: %v", err)
	}
	agg, err := apt.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	sa, _ := alice.Generate()
	sb, _ := bob.Generate()
	for i := range agg.Window {
		if agg.Window[i] != (sa.Window[i] || sb.Window[i]) {
			t.Fatalf("window[%d] is not the OR of person states", i)
		}
		if agg.Door[i] != (sa.Door[i] || sb.Door[i]) {
			t.Fatalf("door[%d] is not the OR of person states", i)
		}
	}
}

func TestMotionAttributable(t *testing.T) {
	// With the ambient process disabled, a motion step is only allowed while
	// some person is in the room at that same step.
	cfg := testApartmentConfig()
	cfg.AmbientProb = 0

	tl := testTimeline(t, 7)
	alice := newTestPerson(t, testPersonConfig(), 123)
	bob := newTestPerson(t, secondPersonConfig(), 23)

	apt, err := NewApartment(tl, []*Person{alice, bob}, cfg, 42)
	if err != nil {
		t.Fatalf("NewApartment: %v", err)
	}
	agg, err := apt.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	sa, _ := alice.Generate()
	sb, _ := bob.Generate()
	for i := range agg.Motion {
		if agg.Motion[i] && !sa.Room[i] && !sb.Room[i] {
			t.Fatalf("motion[%d] with no occupant in the room", i)
		}
	}
}

func TestMotionBurstStopsAtDeparture(t *testing.T) {
	// Long bursts forced at every presence step must be cut off the moment
	// room presence ends, not run out their drawn duration.
	cfg := ApartmentConfig{
		MovementProb: 1,
		BurstMin:     30,
		BurstMax:     30,
	}
	pc := testPersonConfig()
	pc.WeekdayOutside = []HourRange{{12, 24}}
	pc.WeekendOutside = []HourRange{{12, 24}}
	pc.Room = EventConfig{CountMin: 40, CountMax: 40, DurMin: 30, DurMax: 30}

	tl := testTimeline(t, 3)
	p := newTestPerson(t, pc, 7)
	apt, err := NewApartment(tl, []*Person{p}, cfg, 42)
	if err != nil {
		t.Fatalf("NewApartment: %v", err)
	}
	agg, err := apt.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	s, _ := p.Generate()
	for i := range agg.Motion {
		if agg.Motion[i] && !s.Room[i] {
			t.Fatalf("motion[%d] continues after the occupant left the room", i)
		}
	}
}

func TestMotionIndependentOfPersonOrder(t *testing.T) {
	tl := testTimeline(t, 3)

	build := func(order []string) *ApartmentSeries {
		var persons []*Person
		for _, name := range order {
			if name == "alice" {
				persons = append(persons, newTestPerson(t, testPersonConfig(), 123))
			} else {
				persons = append(persons, newTestPerson(t, secondPersonConfig(), 23))
			}
		}
		apt, err := NewApartment(tl, persons, testApartmentConfig(), 42)
		if err != nil {
			t.Fatalf("NewApartment: %v", err)
		}
		agg, err := apt.Generate()
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		return agg
	}

	ab := build([]string{"alice", "bob"})
	ba := build([]string{"bob", "alice"})
	for i := range ab.Motion {
		if ab.Motion[i] != ba.Motion[i] {
			t.Fatalf("motion[%d] depends on person listing order", i)
		}
	}
}

func TestApartmentDeterministic(t *testing.T) {
	tl := testTimeline(t, 3)

	gen := func(seed int64) *ApartmentSeries {
		alice := newTestPerson(t, testPersonConfig(), 123)
		apt, err := NewApartment(tl, []*Person{alice}, testApartmentConfig(), seed)
		if err != nil {
			t.Fatalf("NewApartment: %v", err)
		}
		agg, err := apt.Generate()
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		return agg
	}

	a, b := gen(42), gen(42)
	for i := range a.Motion {
		if a.Motion[i] != b.Motion[i] {
			t.Fatalf("same seed: motion differs at %d", i)
		}
	}

	c := gen(99)
	same := true
	for i := range a.Motion {
		if a.Motion[i] != c.Motion[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different apartment seeds produced identical motion")
	}
}

func TestApartmentConfigValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*ApartmentConfig)
	}{
		{"probability above 1", func(c *ApartmentConfig) { c.MovementProb = 1.5 }},
		{"negative probability", func(c *ApartmentConfig) { c.MovementProb = -0.1 }},
		{"zero burst", func(c *ApartmentConfig) { c.BurstMin = 0 }},
		{"burst max below min", func(c *ApartmentConfig) { c.BurstMax = 1; c.BurstMin = 5 }},
		{"ambient max below min", func(c *ApartmentConfig) { c.AmbientMax = 1; c.AmbientMin = 3 }},
	}
	tl := testTimeline(t, 1)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testApartmentConfig()
			tc.mutate(&cfg)
			if _, err := NewApartment(tl, nil, cfg, 1); err == nil {
				t.Errorf("expected validation error for %s", tc.name)
			}
		})
	}
}

func TestDeriveSeedStability(t *testing.T) {
	a := DeriveSeed(42, "env.temperature")
	b := DeriveSeed(42, "env.temperature")
	if a != b {
		t.Error("DeriveSeed is not deterministic")
	}
	if DeriveSeed(42, "env.temperature") == DeriveSeed(42, "env.humidity") {
		t.Error("different labels should derive different seeds")
	}
	if DeriveSeed(42, "motion.person", 0) == DeriveSeed(42, "motion.person", 1) {
		t.Error("different indices should derive different seeds")
	}
	if DeriveSeed(42, "x") == DeriveSeed(43, "x") {
		t.Error("different base seeds should derive different seeds")
	}
}
