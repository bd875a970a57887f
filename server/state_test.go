package server

import (
	"encoding/json"
	"math"
	"sort"
	"testing"
)

func TestJoinAssignsColorsAndResources(t *testing.T) {
	s := newTestState()
	s.Join("p1", "Alice", "")
	s.Join("p2", "Bob", "franks")
	s.Join("p3", "Carol", "")

	cases := []struct {
		id, color, civ string
	}{
		{"p1", "blue", "generic"},
		{"p2", "red", "franks"},
		{"p3", "blue", "generic"},
	}
	for _, tc := range cases {
		p := s.players[tc.id]
		if p == nil {
			t.Fatalf("player %s missing", tc.id)
		}
		if p.Color != tc.color || p.Civilization != tc.civ || p.Age != AgeDark {
			t.Fatalf("player %s = %+v", tc.id, p)
		}
		r := s.resources[tc.id]
		if r == nil || r.Food != 200 || r.Wood != 200 || r.Gold != 100 || r.Stone != 100 {
			t.Fatalf("resources %s = %+v", tc.id, r)
		}
	}
}

func TestRejoinDoesNotDuplicate(t *testing.T) {
	s := newTestState()
	s.Join("p1", "Alice", "")
	s.Join("p2", "Bob", "")
	s.Start()
	s.resources["p1"].Wood = 50

	s.Join("p1", "Alicia", "britons")

	if len(s.players) != 2 || len(s.order) != 2 || len(s.resources) != 2 {
		t.Fatalf("players=%d order=%d resources=%d", len(s.players), len(s.order), len(s.resources))
	}
	p := s.players["p1"]
	if p.Name != "Alicia" || p.Civilization != "britons" || p.Color != "blue" {
		t.Fatalf("rejoined player = %+v", p)
	}
	if s.resources["p1"].Wood != 50 {
		t.Fatalf("rejoin reset resources: %+v", s.resources["p1"])
	}
	if len(s.UnitsOf("p1")) != 3 {
		t.Fatalf("rejoin touched units: %d", len(s.UnitsOf("p1")))
	}
}

func TestStartCreatesTownCentersAndVillagers(t *testing.T) {
	s := newTestState()
	s.Join("p1", "Alice", "")
	s.Join("p2", "Bob", "")

	if !s.Start() {
		t.Fatalf("Start returned false from lobby")
	}
	if s.Phase() != PhasePlaying {
		t.Fatalf("phase = %s", s.Phase())
	}
	if len(s.buildings) != 2 || len(s.units) != 6 {
		t.Fatalf("buildings=%d units=%d", len(s.buildings), len(s.units))
	}

	anchorX := map[string]float64{"p1": 100, "p2": 700}
	for _, b := range s.buildings {
		if b.Type != BuildingTownCenter || b.Health != 2400 || b.MaxHealth != 2400 || b.Armor != 0 {
			t.Fatalf("town center = %+v", b)
		}
		if b.X != anchorX[b.PlayerID] || b.Y != 300 {
			t.Fatalf("town center for %s at (%v,%v)", b.PlayerID, b.X, b.Y)
		}
	}
	for _, pid := range []string{"p1", "p2"} {
		var xs []float64
		for _, id := range s.UnitsOf(pid) {
			u := s.units[id]
			if u.Type != UnitVillager || u.Health != 25 || u.Attack != 3 || u.Speed != 1.0 || u.Task != TaskIdle {
				t.Fatalf("villager = %+v", u)
			}
			if u.Y != 350 {
				t.Fatalf("villager y = %v", u.Y)
			}
			xs = append(xs, u.X-anchorX[pid])
		}
		sort.Float64s(xs)
		if len(xs) != 3 || xs[0] != 0 || xs[1] != 30 || xs[2] != 60 {
			t.Fatalf("%s villager offsets = %v", pid, xs)
		}
	}
}

func TestStartIsIdempotent(t *testing.T) {
	s := newTestState()
	s.Join("p1", "Alice", "")
	s.Start()
	if s.Start() {
		t.Fatalf("second Start returned true")
	}
	if len(s.units) != 3 || len(s.buildings) != 1 {
		t.Fatalf("units=%d buildings=%d after second start", len(s.units), len(s.buildings))
	}
}

func TestPhaseNeverRegresses(t *testing.T) {
	s := newTestState()
	if s.Finish() {
		t.Fatalf("Finish from lobby should be rejected")
	}
	s.Start()
	if !s.Finish() {
		t.Fatalf("Finish from playing should succeed")
	}
	if s.Start() || s.advancePhase(PhasePlaying) || s.advancePhase(PhaseLobby) {
		t.Fatalf("phase regressed")
	}
	if s.Phase() != PhaseFinished {
		t.Fatalf("phase = %s", s.Phase())
	}
}

func TestSelectIsExclusivePerPlayer(t *testing.T) {
	s := newTestState()
	s.Join("p1", "Alice", "")
	s.Join("p2", "Bob", "")
	s.Start()
	mine := s.UnitsOf("p1")
	theirs := s.UnitsOf("p2")
	s.units[theirs[0]].Selected = true

	s.Select("p1", mine)
	if n := s.Select("p1", []string{mine[1], theirs[1], "nope"}); n != 1 {
		t.Fatalf("selected %d, want 1", n)
	}
	for _, id := range mine {
		if got, want := s.units[id].Selected, id == mine[1]; got != want {
			t.Fatalf("unit %s selected=%v want %v", id, got, want)
		}
	}
	if !s.units[theirs[0]].Selected || s.units[theirs[1]].Selected {
		t.Fatalf("other player's selection changed")
	}
}

func TestMoveUnknownUnitIsNoop(t *testing.T) {
	s := newTestState()
	if s.Move("ghost", 1, 1) {
		t.Fatalf("move of unknown unit reported success")
	}
}

func TestStepConvergesWithoutOvershoot(t *testing.T) {
	s := newTestState()
	s.Join("p1", "Alice", "")
	s.Join("p2", "Bob", "")
	s.Start()
	id := s.UnitsOf("p1")[0]
	u := s.units[id]
	start := math.Hypot(500-u.X, 300-u.Y)
	s.Move(id, 500, 300)
	if !u.Moving() {
		t.Fatalf("unit not moving after Move")
	}

	limit := int(math.Ceil(start/u.Speed)) + 1
	prev := start
	ticks := 0
	for u.Task == TaskMoving {
		if ticks > limit {
			t.Fatalf("did not arrive within %d ticks", limit)
		}
		s.Step(1)
		ticks++
		d := math.Hypot(500-u.X, 300-u.Y)
		if d >= prev && u.Task == TaskMoving {
			t.Fatalf("tick %d: distance %v did not decrease from %v", ticks, d, prev)
		}
		prev = d
	}
	if u.X != 500 || u.Y != 300 || u.TargetX != nil || u.TargetY != nil || u.Task != TaskIdle {
		t.Fatalf("after arrival unit = %+v", u)
	}
}

func TestStepZeroDistanceArrives(t *testing.T) {
	s := newTestState()
	s.Join("p1", "Alice", "")
	s.Start()
	id := s.UnitsOf("p1")[0]
	u := s.units[id]
	s.Move(id, u.X, u.Y)
	s.Step(1)
	if u.Task != TaskIdle || u.TargetX != nil || math.IsNaN(u.X) || math.IsNaN(u.Y) {
		t.Fatalf("zero distance move = %+v", u)
	}
}

func TestStepLargeSpeedSnapsToTarget(t *testing.T) {
	u := newVillager("u", "p1", 0, 0)
	u.Speed = 50
	u.setTarget(10, 0)
	u.advance(1)
	if u.X != 10 || u.Y != 0 || u.Task != TaskIdle {
		t.Fatalf("fast unit overshot: %+v", u)
	}
}

func TestStepIgnoredOutsidePlaying(t *testing.T) {
	s := newTestState()
	s.Join("p1", "Alice", "")
	s.Start()
	id := s.UnitsOf("p1")[0]
	s.Move(id, 900, 900)
	s.Finish()
	if n := s.Step(1); n != 0 {
		t.Fatalf("finished room advanced %d units", n)
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	s := newTestState()
	s.Join("p1", "Alice", "")
	s.Start()
	id := s.UnitsOf("p1")[0]
	s.Move(id, 10, 10)

	snap := s.Snapshot()
	*snap.Units[id].TargetX = 999
	if *s.units[id].TargetX != 10 {
		t.Fatalf("snapshot shares target with live state")
	}
	if snap.GameState != PhasePlaying || snap.Players["p1"].Color != "blue" || len(snap.Buildings) != 1 {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestStepHandlesExtremeCoordinates(t *testing.T) {
	s := newTestState()
	s.Join("p1", "Alice", "")
	s.Start()
	id := s.UnitsOf("p1")[0]
	u := s.units[id]
	x0, y0 := u.X, u.Y

	s.Move(id, 1.7e308, -1.7e308)
	for i := 0; i < 5; i++ {
		s.Step(1)
	}
	if !(u.X > x0) || !(u.Y < y0) || u.Task != TaskMoving {
		t.Fatalf("unit stuck on far target: x=%v y=%v task=%s", u.X, u.Y, u.Task)
	}

	// 从极远处出发到反方向极远处，位置必须保持有限
	far := s.units[s.UnitsOf("p1")[1]]
	far.X, far.Y = 1e308, -1e308
	s.Move(far.ID, -1.7e308, 1.7e308)
	s.Step(1)
	for _, v := range []float64{far.X, far.Y} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("position not finite: x=%v y=%v", far.X, far.Y)
		}
	}
	if _, err := json.Marshal(s.Snapshot()); err != nil {
		t.Fatalf("snapshot marshal: %v", err)
	}
}
