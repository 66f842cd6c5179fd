package billing

import (
	"sync"
	"time"

	"checkops/internal/platform/models"
)

const planListKey = "plans"

type cachedPlans struct {
	plans    []*models.Plan
	cachedAt time.Time
}

// PlanCache holds the plan catalogue for a fixed TTL.
type PlanCache struct {
	store sync.Map // map[key]*cachedPlans
	ttl   time.Duration
}

func NewPlanCache(ttl time.Duration) *PlanCache {
	return &PlanCache{ttl: ttl}
}

func (c *PlanCache) Get() ([]*models.Plan, bool) {
	val, ok := c.store.Load(planListKey)
	if !ok {
		return nil, false
	}

	entry := val.(*cachedPlans)
	if time.Since(entry.cachedAt) > c.ttl {
		c.store.Delete(planListKey)
		return nil, false
	}

	return entry.plans, true
}

func (c *PlanCache) Set(plans []*models.Plan) {
	c.store.Store(planListKey, &cachedPlans{plans: plans, cachedAt: time.Now()})
}
