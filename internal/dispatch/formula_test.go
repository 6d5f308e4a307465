package dispatch

import "testing"

func TestJobsToStart(t *testing.T) {
	cases := []struct {
		name             string
		pending, idle, waiting int
		want             int
	}{
		{"no pending demand", 0, 10, 0, 0},
		{"idle capacity exceeds pending", 5, 20, 0, 5},
		{"pending exceeds capacity", 50, 2, 0, 4},
		{"waiting already covers idle", 5, 2, 2, 1},
		{"negative capacity clamps to zero", 5, 0, 10, 0},
		{"high pending with ample idle is capped at pending", 100, 100, 0, 100},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := jobsToStart(c.pending, c.idle, c.waiting)
			if got != c.want {
				t.Errorf("jobsToStart(%d,%d,%d) = %d, want %d", c.pending, c.idle, c.waiting, got, c.want)
			}
		})
	}
}

func TestJobsToStart_NeverExceedsPending(t *testing.T) {
	for pending := 0; pending < 200; pending += 7 {
		got := jobsToStart(pending, 1000, 0)
		if got > pending {
			t.Errorf("jobsToStart(%d, 1000, 0) = %d exceeds pending", pending, got)
		}
	}
}

func TestJobsToStart_NeverNegative(t *testing.T) {
	got := jobsToStart(3, 0, 1000)
	if got < 0 {
		t.Errorf("jobsToStart returned negative: %d", got)
	}
}
