package allocation

// Tier は稼働率帯の識別子です。
type Tier string

const (
	TierFull   Tier = "full"
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
	TierBench  Tier = "bench"
)

// Band は稼働率帯の表示名と識別子です。
type Band struct {
	Label string
	Tier  Tier
}

var (
	bandFull   = Band{Label: "Fully Allocated", Tier: TierFull}
	bandHigh   = Band{Label: "High", Tier: TierHigh}
	bandMedium = Band{Label: "Medium", Tier: TierMedium}
	bandLow    = Band{Label: "Low", Tier: TierLow}
	bandBench  = Band{Label: "Bench", Tier: TierBench}
)

// Classify は稼働率を稼働率帯に分類します。上から順に評価します。
func Classify(percentage int) Band {
	switch {
	case percentage >= MaxAllocation:
		return bandFull
	case percentage >= 75:
		return bandHigh
	case percentage >= 50:
		return bandMedium
	case percentage >= 25:
		return bandLow
	default:
		return bandBench
	}
}

// Tiers は稼働率帯を高い順に返します。
func Tiers() []Tier {
	return []Tier{TierFull, TierHigh, TierMedium, TierLow, TierBench}
}

// Distribution は稼働率帯ごとの人数です。
type Distribution map[Tier]int

// NewDistribution は稼働率の一覧を稼働率帯ごとに数えます。すべての帯を 0 で初期化します。
func NewDistribution(percentages []int) Distribution {
	d := make(Distribution, len(Tiers()))
	for _, t := range Tiers() {
		d[t] = 0
	}
	for _, p := range percentages {
		d[Classify(p).Tier]++
	}
	return d
}
