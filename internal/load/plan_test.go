package load

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlanFor(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want Plan
	}{
		{"balanced runs everything", Request{Mode: ModeBalanced}, Plan{Memory: true, CPU: true, IO: true}},
		{"cpu heavy", Request{Mode: ModeCPUHeavy}, Plan{CPU: true}},
		{"memory heavy", Request{Mode: ModeMemoryHeavy}, Plan{Memory: true}},
		{"io heavy", Request{Mode: ModeIOHeavy}, Plan{IO: true}},
		{"balanced force io", Request{Mode: ModeBalanced, ForceIO: true}, Plan{IO: true}},
		{"balanced force cpu and io", Request{Mode: ModeBalanced, ForceCPU: true, ForceIO: true}, Plan{CPU: true, IO: true}},
		{"balanced force all", Request{Mode: ModeBalanced, ForceCPU: true, ForceIO: true, ForceMemory: true}, Plan{Memory: true, CPU: true, IO: true}},
		{"cpu heavy force memory", Request{Mode: ModeCPUHeavy, ForceMemory: true}, Plan{Memory: true, CPU: true}},
		{"io heavy force io", Request{Mode: ModeIOHeavy, ForceIO: true}, Plan{IO: true}},
		{"memory heavy force cpu and io", Request{Mode: ModeMemoryHeavy, ForceCPU: true, ForceIO: true}, Plan{Memory: true, CPU: true, IO: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PlanFor(tt.req))
		})
	}
}
