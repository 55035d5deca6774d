package roles

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseGoroutineID(t *testing.T) {
	tests := []struct {
		name  string
		stack string
		want  int64
	}{
		{"running", "goroutine 42 [running]:\nmain.main()", 42},
		{"single digit", "goroutine 1 [running]:", 1},
		{"no prefix", "thread 42 [running]:", 0},
		{"too short", "gorou", 0},
		{"no digits", "goroutine [running]", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseGoroutineID([]byte(tt.stack)))
		})
	}
}

func TestCurrentID_DiffersAcrossGoroutines(t *testing.T) {
	here := CurrentID()
	assert.NotZero(t, here)

	ch := make(chan int64)
	go func() { ch <- CurrentID() }()
	assert.NotEqual(t, here, <-ch)
}

func TestEnter_ScopedToGoroutine(t *testing.T) {
	leave := Enter(Scheduler)
	assert.Equal(t, Scheduler, Current())

	ch := make(chan Role)
	go func() { ch <- Current() }()
	assert.Equal(t, Unknown, <-ch)

	leave()
	assert.Equal(t, Unknown, Current())
}

func TestEnter_NestedRestoresPrevious(t *testing.T) {
	leaveMain := Enter(Main)
	defer leaveMain()

	leave := Enter(Scheduler)
	assert.Equal(t, Scheduler, Current())
	leave()
	assert.Equal(t, Main, Current())
}

func TestAssertNot(t *testing.T) {
	leave := Enter(Scheduler)
	defer leave()

	SetChecks(false)
	assert.NotPanics(t, func() { AssertNot(Scheduler, "AddChild") })

	SetChecks(true)
	defer SetChecks(false)
	assert.PanicsWithValue(t, "roles: AddChild called on scheduler goroutine", func() {
		AssertNot(Scheduler, "AddChild")
	})
	assert.NotPanics(t, func() { AssertNot(Main, "AddChild") })
}

func TestAssert(t *testing.T) {
	SetChecks(true)
	defer SetChecks(false)

	assert.Panics(t, func() { Assert(Main, "Update") })

	leave := Enter(Main)
	defer leave()
	assert.NotPanics(t, func() { Assert(Main, "Update") })
}

func TestRole_String(t *testing.T) {
	assert.Equal(t, "main", Main.String())
	assert.Equal(t, "scheduler", Scheduler.String())
	assert.Equal(t, "unknown", Role(9).String())
}
