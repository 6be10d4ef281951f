package objective

// CoverageComponent 班次人数与目标人数的偏差惩罚
type CoverageComponent struct {
	Target int
	Weight float64
}

func (c *CoverageComponent) Name() string { return NameCoverage }

// Score -Weight * |实际人数 - 目标人数|
func (c *CoverageComponent) Score(sc *ShiftContext) float64 {
	diff := sc.TotalStaff - c.Target
	if diff < 0 {
		diff = -diff
	}
	return -c.Weight * float64(diff)
}

// CoworkerComponent 期望/不期望同事
type CoworkerComponent struct {
	ShouldWeight    float64
	ShouldNotWeight float64
}

func (c *CoworkerComponent) Name() string { return NameCoworker }

// Score 每条上岗线路内（去重后）每个成员：
// +ShouldWeight * 期望同事在组人数 - ShouldNotWeight * 不期望同事在组人数
func (c *CoworkerComponent) Score(sc *ShiftContext) float64 {
	total := 0.0
	for _, crew := range sc.Crews {
		members := uniqueMembers(crew.Members)
		for _, id := range members {
			p, ok := sc.Directory.Get(id)
			if !ok {
				continue
			}
			should, shouldNot := 0, 0
			for _, other := range members {
				if other == id {
					continue
				}
				if p.ShouldWorkWith.Has(other) {
					should++
				}
				if p.ShouldNotWorkWith.Has(other) {
					shouldNot++
				}
			}
			total += c.ShouldWeight*float64(should) - c.ShouldNotWeight*float64(shouldNot)
		}
	}
	return total
}

// uniqueMembers 去重并保留首次出现顺序
func uniqueMembers(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// LinePreferenceComponent 偏好/回避线路
type LinePreferenceComponent struct {
	PreferredWeight float64
	AvoidWeight     float64
}

func (c *LinePreferenceComponent) Name() string { return NameLinePrefs }

// Score 每个上岗成员：在偏好线路 +PreferredWeight，在回避线路 -AvoidWeight
func (c *LinePreferenceComponent) Score(sc *ShiftContext) float64 {
	total := 0.0
	for _, crew := range sc.Crews {
		for _, id := range crew.Members {
			p, ok := sc.Directory.Get(id)
			if !ok {
				continue
			}
			if p.PreferredLines.Has(crew.LineID) {
				total += c.PreferredWeight
			}
			if p.AvoidLines.Has(crew.LineID) {
				total -= c.AvoidWeight
			}
		}
	}
	return total
}

// SynergyComponent 角色/职称/经验/ECP 搭配评分，规则未定义前恒为 0
type SynergyComponent struct{}

func (c *SynergyComponent) Name() string { return NameSynergy }

func (c *SynergyComponent) Score(_ *ShiftContext) float64 {
	return 0
}
