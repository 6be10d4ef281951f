package optimizer

import (
	"math/rand"

	"github.com/paiban/linecrew/pkg/model"
)

// RejectReason 候选交换被拒绝的原因
type RejectReason string

const (
	RejectUnknownPerson RejectReason = "unknown_person" // 人员不在目录中
	RejectLocked        RejectReason = "locked"         // 违反线路锁定
	RejectAvoidLine     RejectReason = "avoid_line"     // 目标线路在回避列表中
	RejectFastCheck     RejectReason = "fast_check"     // 快速校验失败
	RejectNotBetter     RejectReason = "not_better"     // 未严格优于当前最优
)

// Move 在两个线路之间交换一名成员。
// 按位置交换，再次应用即可精确还原。Day/Shift 为提出交换时采样的班次，用于快速校验。
type Move struct {
	Day     int
	Shift   model.ShiftType
	LineA   int
	IndexA  int
	PersonA string
	LineB   int
	IndexB  int
	PersonB string
}

// Apply 执行交换
func (m Move) Apply(r *model.Roster) error {
	return r.Swap(m.LineA, m.IndexA, m.LineB, m.IndexB)
}

// NeighborhoodGenerator 交换邻域生成器，随机源由调用方传入
type NeighborhoodGenerator struct {
	directory *model.Directory
}

// NewNeighborhoodGenerator 创建邻域生成器
func NewNeighborhoodGenerator(dir *model.Directory) *NeighborhoodGenerator {
	return &NeighborhoodGenerator{directory: dir}
}

// ProposeSwap 依次扫描采样的班次，提出第一个合法交换。
// 优先在该班次上岗的非空线路之间交换，不足两条时退化为任意非空线路。
// rejected 回调记录被拒绝的候选（可为 nil）。
func (n *NeighborhoodGenerator) ProposeSwap(rng *rand.Rand, r *model.Roster, sampled []model.ShiftKey, rejected func(RejectReason)) (Move, bool) {
	lines := r.Lines()
	if len(lines) < 2 {
		return Move{}, false
	}

	active := make([]int, 0, len(lines))
	for _, key := range sampled {
		active = active[:0]
		for _, l := range lines {
			if r.Headcount(l.ID) > 0 && r.LineShiftOnDay(key.Day, l.ID) == key.Shift {
				active = append(active, l.ID)
			}
		}
		if len(active) < 2 {
			active = active[:0]
			for _, l := range lines {
				if r.Headcount(l.ID) > 0 {
					active = append(active, l.ID)
				}
			}
		}
		if len(active) < 2 {
			continue
		}

		i := rng.Intn(len(active))
		j := rng.Intn(len(active) - 1)
		if j >= i {
			j++
		}
		lineA, lineB := active[i], active[j]
		crewA, crewB := r.Crew(lineA), r.Crew(lineB)
		idxA := rng.Intn(len(crewA))
		idxB := rng.Intn(len(crewB))

		if reason, ok := n.admissible(crewA[idxA], lineA, lineB, crewB[idxB]); !ok {
			if rejected != nil {
				rejected(reason)
			}
			continue
		}

		return Move{
			Day:     key.Day,
			Shift:   key.Shift,
			LineA:   lineA,
			IndexA:  idxA,
			PersonA: crewA[idxA],
			LineB:   lineB,
			IndexB:  idxB,
			PersonB: crewB[idxB],
		}, true
	}
	return Move{}, false
}

// admissible 检查 a（在 lineA）与 b（在 lineB）互换是否允许
func (n *NeighborhoodGenerator) admissible(idA string, lineA, lineB int, idB string) (RejectReason, bool) {
	a, okA := n.directory.Get(idA)
	b, okB := n.directory.Get(idB)
	if !okA || !okB {
		return RejectUnknownPerson, false
	}

	// 已偏离锁定线路的人员不参与交换，交换也不能把锁定人员移出锁定线路
	if !a.CanMoveTo(lineA) || !b.CanMoveTo(lineB) {
		return RejectLocked, false
	}
	if !a.CanMoveTo(lineB) || !b.CanMoveTo(lineA) {
		return RejectLocked, false
	}

	if a.AvoidLines.Has(lineB) && !a.PreferredLines.Has(lineB) {
		return RejectAvoidLine, false
	}
	if b.AvoidLines.Has(lineA) && !b.PreferredLines.Has(lineA) {
		return RejectAvoidLine, false
	}
	return "", true
}
