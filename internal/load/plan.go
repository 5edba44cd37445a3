package load

// Plan records which stressor categories a request runs.
type Plan struct {
	Memory bool
	CPU    bool
	IO     bool
}

// PlanFor applies the inclusion policy. A category runs when the mode is its heavy
// variant, when its force flag is set, or when the mode is balanced and neither of the
// other two categories was forced. Force flags combine, so any subset may run.
func PlanFor(r Request) Plan {
	balanced := r.Mode == ModeBalanced
	return Plan{
		Memory: r.Mode == ModeMemoryHeavy || r.ForceMemory || (balanced && !r.ForceCPU && !r.ForceIO),
		CPU:    r.Mode == ModeCPUHeavy || r.ForceCPU || (balanced && !r.ForceMemory && !r.ForceIO),
		IO:     r.Mode == ModeIOHeavy || r.ForceIO || (balanced && !r.ForceCPU && !r.ForceMemory),
	}
}
