package casualty

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/triplea-game/triplea-sub001/internal/combat/power"
	"github.com/triplea-game/triplea-sub001/internal/combat/unit"
)

// OrderCache remembers casualty orders by unit type. Enable it only for
// bulk simulation where the same engagements repeat, and Clear it after.
// A nil cache caches nothing.
type OrderCache struct {
	mu     sync.Mutex
	orders map[string][]string
	hits   int
	misses int
}

// NewOrderCache returns an empty cache.
func NewOrderCache() *OrderCache {
	return &OrderCache{orders: map[string][]string{}}
}

func (c *OrderCache) get(key string) ([]string, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	order, ok := c.orders[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return order, ok
}

func (c *OrderCache) put(key string, order []string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.orders[key] = order
}

// Clear drops every cached order.
func (c *OrderCache) Clear() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.orders = map[string][]string{}
	c.hits, c.misses = 0, 0
}

// Len returns the number of cached orders.
func (c *OrderCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.orders)
}

// Stats returns cache hits and misses since the last Clear.
func (c *OrderCache) Stats() (hits int, misses int) {
	if c == nil {
		return 0, 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// typeCounts is a multiset of unit type names.
type typeCounts map[string]int

func countTypes(units []*unit.Unit, m unit.Match) typeCounts {
	out := typeCounts{}
	for _, u := range units {
		if m == nil || m(u) {
			out[u.Type.Name]++
		}
	}
	return out
}

func (c typeCounts) String() string {
	names := make([]string, 0, len(c))
	for name, n := range c {
		if n > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s*%d", name, c[name])
	}
	return strings.Join(parts, ",")
}

func orderKey(req Request, targets, amphibious typeCounts) string {
	return fmt.Sprintf("%s|%s|%t|%t|%s|%s", req.Player, req.Territory, req.Defending, req.Amphibious, targets, amphibious)
}

// Order returns the targets sorted so the first unit is the best casualty.
// Support givers and the units they support are interleaved so that
// support survives as long as possible.
func (s *Selector) Order(req Request) []*unit.Unit {
	targets := countTypes(req.Targets, nil)
	amphibious := countTypes(req.Targets, unit.IsAmphibious)
	key := orderKey(req, targets, amphibious)
	if order, ok := s.Cache.get(key); ok && len(order) == len(req.Targets) {
		return materialize(order, req.Targets)
	}

	sorted := s.order(req)

	if s.Cache != nil {
		names := make([]string, len(sorted))
		for i, u := range sorted {
			names[i] = u.Type.Name
		}
		for i, name := range names {
			s.Cache.put(orderKey(req, targets, amphibious), slices.Clone(names[i:]))
			targets[name]--
			if targets[name] < amphibious[name] {
				amphibious[name]--
			}
		}
	}
	return sorted
}

func materialize(order []string, targets []*unit.Unit) []*unit.Unit {
	pool := slices.Clone(targets)
	out := make([]*unit.Unit, 0, len(order))
	for _, name := range order {
		for i, u := range pool {
			if u != nil && u.Type.Name == name {
				out = append(out, u)
				pool[i] = nil
				break
			}
		}
	}
	return out
}

func (s *Selector) order(req Request) []*unit.Unit {
	pc := s.powerContext(req)
	single := map[*unit.Type]int{}
	for _, u := range req.Targets {
		if _, ok := single[u.Type]; !ok {
			alone := power.Calculate([]*unit.Unit{u}, nil, nil, req.Defending, pc)
			single[u.Type] = power.Total(alone, pc.DiceSides, pc.LHTRHeavyBombers).Power
		}
	}
	sorted := slices.Clone(req.Targets)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if pa, pb := single[a.Type], single[b.Type]; pa != pb {
			return pa > pb
		}
		return lessByCostThenName(b, a)
	})

	strengthGiven, rollGiven := power.SupportMap{}, power.SupportMap{}
	current := power.CalculateWithSupport(sorted, sorted, req.Enemy, req.Defending, pc, strengthGiven, rollGiven)
	total := func(u *unit.Unit, pr power.PowerAndRolls) int {
		return power.Total(power.Map{u: pr}, pc.DiceSides, pc.LHTRHeavyBombers).Power
	}

	slices.Reverse(sorted)
	out := make([]*unit.Unit, 0, len(sorted))
	for len(sorted) > 0 {
		var worst *unit.Unit
		minPower := math.MaxInt
		seen := map[*unit.Type]bool{}
		for _, u := range sorted {
			if seen[u.Type] {
				continue
			}
			seen[u.Type] = true

			p := total(u, current[u])
			for _, r := range receivers(sorted, strengthGiven[u]) {
				pr, ok := current[r]
				if !ok {
					continue
				}
				pr.Rolls -= rollGiven[u][r]
				if pr.Rolls == 1 {
					p += strengthGiven[u][r]
					continue
				}
				without := pr
				without.Power -= strengthGiven[u][r]
				p += total(r, pr) - total(r, without)
			}
			for _, r := range receivers(sorted, rollGiven[u]) {
				pr, ok := current[r]
				if !ok {
					continue
				}
				without := pr
				without.Rolls -= rollGiven[u][r]
				p += total(r, pr) - total(r, without)
			}

			if p < minPower || p == minPower && lessByCostThenName(u, worst) {
				worst, minPower = u, p
			}
		}

		for _, r := range receivers(sorted, strengthGiven[worst]) {
			if pr, ok := current[r]; ok {
				pr.Power -= strengthGiven[worst][r]
				current[r] = pr
				sorted = moveToFront(sorted, r)
			}
		}
		for _, r := range receivers(sorted, rollGiven[worst]) {
			if pr, ok := current[r]; ok {
				pr.Rolls -= rollGiven[worst][r]
				current[r] = pr
				sorted = moveToFront(sorted, r)
			}
		}
		out = append(out, worst)
		sorted = slices.DeleteFunc(sorted, func(u *unit.Unit) bool { return u == worst })
		delete(current, worst)
		delete(strengthGiven, worst)
		delete(rollGiven, worst)
	}
	return out
}

// receivers lists the supported units in their current order.
func receivers(order []*unit.Unit, given map[*unit.Unit]int) []*unit.Unit {
	if len(given) == 0 {
		return nil
	}
	var out []*unit.Unit
	for _, u := range order {
		if _, ok := given[u]; ok {
			out = append(out, u)
		}
	}
	return out
}

func moveToFront(units []*unit.Unit, u *unit.Unit) []*unit.Unit {
	i := slices.Index(units, u)
	if i <= 0 {
		return units
	}
	copy(units[1:i+1], units[:i])
	units[0] = u
	return units
}

// lessByCostThenName orders cheaper units first, then by type name.
func lessByCostThenName(a, b *unit.Unit) bool {
	if b == nil {
		return true
	}
	if a.Type.Cost != b.Type.Cost {
		return a.Type.Cost < b.Type.Cost
	}
	return a.Type.Name < b.Type.Name
}
