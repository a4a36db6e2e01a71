package selection

import (
	"testing"

	"assessment-service/internal/models"
)

func TestTierCounts(t *testing.T) {
	testCases := []struct {
		name  string
		count int
		dist  models.Distribution
		want  [3]int
	}{
		{"even split", 10, models.Distribution{Easy: 40, Medium: 40, Hard: 20}, [3]int{4, 4, 2}},
		{"half rounds up", 3, models.Distribution{Easy: 50, Medium: 25, Hard: 25}, [3]int{2, 1, 0}},
		{"single tier", 1, models.Distribution{Hard: 100}, [3]int{0, 0, 1}},
		{"thirds", 10, models.Distribution{Easy: 33.4, Medium: 33.3, Hard: 33.3}, [3]int{4, 3, 3}},
		{"surplus taken from the largest remainder", 2, models.Distribution{Easy: 33.4, Medium: 33.3, Hard: 33.3}, [3]int{0, 1, 1}},
		{"zero tier gets nothing", 7, models.Distribution{Easy: 50, Hard: 50}, [3]int{4, 0, 3}},
		{"sum below 100", 100, models.Distribution{Easy: 33, Medium: 33, Hard: 33}, [3]int{34, 33, 33}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := TierCounts(tc.count, tc.dist)
			for i, tier := range models.Difficulties {
				if got[tier] != tc.want[i] {
					t.Errorf("Expected %s=%d, got %d (all %v)", tier, tc.want[i], got[tier], got)
				}
			}
		})
	}
}

func TestTierCountsSumToCount(t *testing.T) {
	dists := []models.Distribution{
		{Easy: 50, Medium: 25, Hard: 25},
		{Easy: 33.4, Medium: 33.3, Hard: 33.3},
		{Easy: 10, Medium: 10, Hard: 80},
		{Easy: 99.5, Medium: 0.5},
		{Easy: 60, Medium: 40.5},
		{Medium: 99},
	}
	for _, dist := range dists {
		for count := 1; count <= 150; count++ {
			got := TierCounts(count, dist)
			sum := 0
			for _, tier := range models.Difficulties {
				if got[tier] < 0 {
					t.Fatalf("Negative count for %s with %v x %d", tier, dist, count)
				}
				if dist.Percent(tier) == 0 && got[tier] != 0 {
					t.Fatalf("Tier %s has 0%% but got %d", tier, got[tier])
				}
				sum += got[tier]
			}
			if sum != count {
				t.Fatalf("Expected counts to sum to %d for %v, got %v", count, dist, got)
			}
		}
	}
}

func TestApportionPoints(t *testing.T) {
	testCases := []struct {
		name    string
		weights []int
		total   int
		want    []int
	}{
		{"exact multiple", []int{1, 2, 3}, 12, []int{2, 4, 6}},
		{"remainder to largest fraction", []int{1, 1, 1}, 10, []int{4, 3, 3}},
		{"minimum one each", []int{1, 100}, 2, []int{1, 1}},
		{"weighted", []int{1, 3}, 10, []int{3, 7}},
		{"minimum bump overshoot", []int{1, 1, 10}, 4, []int{1, 1, 2}},
		{"empty", nil, 5, []int{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := ApportionPoints(tc.weights, tc.total)
			if len(got) != len(tc.want) {
				t.Fatalf("Expected %v, got %v", tc.want, got)
			}
			sum := 0
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("Expected %v, got %v", tc.want, got)
					break
				}
				sum += got[i]
			}
			if len(got) > 0 && sum != tc.total {
				t.Errorf("Expected total %d, got %d", tc.total, sum)
			}
		})
	}
}
