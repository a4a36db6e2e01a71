package selection

import (
	"math"
	"sort"

	"assessment-service/internal/models"
)

// TierCounts splits count over the tiers of dist. Each tier first gets
// round(count*pct/100); the drift left by rounding is then settled one unit at
// a time, visiting tiers by largest fractional remainder. Ties go to the
// easier tier when adding and to the harder tier when removing. A tier with a
// zero percentage never receives a question.
func TierCounts(count int, dist models.Distribution) map[models.Difficulty]int {
	counts := make(map[models.Difficulty]int, len(models.Difficulties))
	remainders := make(map[models.Difficulty]float64, len(models.Difficulties))
	var eligible []models.Difficulty

	total := 0
	for _, t := range models.Difficulties {
		pct := dist.Percent(t)
		if pct <= 0 {
			counts[t] = 0
			continue
		}
		quota := float64(count) * pct / 100
		n := int(math.Floor(quota + 0.5))
		counts[t] = n
		remainders[t] = quota - math.Floor(quota)
		eligible = append(eligible, t)
		total += n
	}
	if len(eligible) == 0 {
		return counts
	}

	if total < count {
		order := byRemainder(eligible, remainders, false)
		for i := 0; total < count; i++ {
			counts[order[i%len(order)]]++
			total++
		}
	}
	if total > count {
		order := byRemainder(eligible, remainders, true)
		for i := 0; total > count; i++ {
			t := order[i%len(order)]
			if counts[t] == 0 {
				continue
			}
			counts[t]--
			total--
		}
	}
	return counts
}

func byRemainder(tiers []models.Difficulty, rem map[models.Difficulty]float64, hardFirst bool) []models.Difficulty {
	order := append([]models.Difficulty(nil), tiers...)
	sort.SliceStable(order, func(i, j int) bool {
		if rem[order[i]] != rem[order[j]] {
			return rem[order[i]] > rem[order[j]]
		}
		if hardFirst {
			return order[i].Rank() > order[j].Rank()
		}
		return order[i].Rank() < order[j].Rank()
	})
	return order
}

// ApportionPoints distributes total over len(weights) questions in proportion
// to their weights by largest remainder, ties to the earlier question. Every
// question keeps at least one point, so total must be at least len(weights).
func ApportionPoints(weights []int, total int) []int {
	n := len(weights)
	points := make([]int, n)
	if n == 0 {
		return points
	}

	weightSum := 0
	for _, w := range weights {
		weightSum += w
	}
	if weightSum == 0 {
		weights = make([]int, n)
		for i := range weights {
			weights[i] = 1
		}
		weightSum = n
	}

	rem := make([]float64, n)
	given := 0
	for i, w := range weights {
		quota := float64(total) * float64(w) / float64(weightSum)
		points[i] = int(math.Floor(quota))
		rem[i] = quota - float64(points[i])
		if points[i] < 1 {
			points[i] = 1
		}
		given += points[i]
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return rem[order[a]] > rem[order[b]] })

	for i := 0; given < total; i++ {
		points[order[i%n]]++
		given++
	}
	// Minimum bumps can overshoot; take back from the smallest remainders.
	for i := n - 1; given > total; i-- {
		if i < 0 {
			i = n - 1
		}
		if points[order[i]] > 1 {
			points[order[i]]--
			given--
		}
	}
	return points
}
