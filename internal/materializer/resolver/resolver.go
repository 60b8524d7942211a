// Package resolver turns a client request (commit, env) into a cache hit
// or a single serialized workspace checkout + load + insert. It is the
// concurrency heart of the service.
package resolver

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/cloudshipai/gitconfd/internal/materializer"
	"github.com/cloudshipai/gitconfd/internal/materializer/cache"
	"github.com/cloudshipai/gitconfd/internal/materializer/loader"
	"github.com/cloudshipai/gitconfd/internal/materializer/workspace"
	"github.com/cloudshipai/gitconfd/internal/metrics"
)

// Resolver owns the workspace and both caches for the life of the
// process. It holds no other state and runs no background tasks;
// refreshing the repository only ever happens as a side effect of a
// cache miss.
type Resolver struct {
	ws        *workspace.Workspace
	envCache  *cache.Cache[materializer.Environment]
	listCache *cache.Cache[[]materializer.EnvDescription]
	envRegex  *regexp.Regexp
	group     singleflight.Group
	metrics   metrics.Sink

	// onMiss, when set, is called once per actual singleflight execution
	// (i.e. once per real checkout+load, never once per caller). Tests use
	// it to assert concurrent callers collapse onto a single execution.
	onMiss func()
}

// New builds a Resolver around ws with two caches of the given capacity.
// sink may be nil, in which case metrics are discarded.
func New(ws *workspace.Workspace, cacheSize int, envRegex *regexp.Regexp, sink metrics.Sink) (*Resolver, error) {
	envCache, err := cache.New[materializer.Environment](cacheSize)
	if err != nil {
		return nil, err
	}
	listCache, err := cache.New[[]materializer.EnvDescription](cacheSize)
	if err != nil {
		return nil, err
	}
	if sink == nil {
		sink = metrics.NullSink{}
	}
	return &Resolver{ws: ws, envCache: envCache, listCache: listCache, envRegex: envRegex, metrics: sink}, nil
}

func normalize(commit string) string {
	if len(commit) > 7 {
		return commit[:7]
	}
	return commit
}

func envKey(commit, env string) string {
	return commit + "::" + env
}

// Resolve implements the algorithm from the resolver's design: normalize
// the commit, check the cache, and on miss checkout + load + insert under
// the workspace lock. Concurrent misses for the same key are collapsed by
// a per-key singleflight, which satisfies "must not starve readers behind
// writers" without a second write path into the workspace.
func (r *Resolver) Resolve(commit, env string) (materializer.Environment, error) {
	commit = normalize(commit)
	key := envKey(commit, env)

	if v, ok := r.envCache.Get(key); ok {
		r.metrics.Incr("cache_hit")
		return v, nil
	}
	r.metrics.Incr("cache_miss")

	result, err, _ := r.group.Do(key, func() (interface{}, error) {
		if v, ok := r.envCache.Get(key); ok {
			return v, nil
		}
		if r.onMiss != nil {
			r.onMiss()
		}

		r.ws.Lock()
		defer r.ws.Unlock()

		if _, err := r.ws.Checkout(commit, true); err != nil {
			return nil, err
		}

		envs, err := loader.Load(r.ws.WorkingTreeFS(), r.envRegex)
		if err != nil {
			return nil, err
		}

		for i := range envs {
			if envs[i].Name == env {
				found := envs[i]
				r.envCache.Put(key, found)
				return found, nil
			}
		}
		return nil, materializer.Wrap(materializer.ErrUnknownEnvironment, "resolver.Resolve", nil)
	})
	if err != nil {
		return materializer.Environment{}, err
	}
	return result.(materializer.Environment), nil
}

// ResolveList mirrors Resolve using the listing cache. An empty result at
// a commit is reported as UnknownEnvironment and never cached.
func (r *Resolver) ResolveList(commit string) ([]materializer.EnvDescription, error) {
	commit = normalize(commit)

	if v, ok := r.listCache.Get(commit); ok {
		r.metrics.Incr("cache_hit")
		return v, nil
	}
	r.metrics.Incr("cache_miss")

	result, err, _ := r.group.Do("list::"+commit, func() (interface{}, error) {
		if v, ok := r.listCache.Get(commit); ok {
			return v, nil
		}
		if r.onMiss != nil {
			r.onMiss()
		}

		r.ws.Lock()
		defer r.ws.Unlock()

		if _, err := r.ws.Checkout(commit, true); err != nil {
			return nil, err
		}

		envs, err := loader.Load(r.ws.WorkingTreeFS(), r.envRegex)
		if err != nil {
			return nil, err
		}
		if len(envs) == 0 {
			return nil, materializer.Wrap(materializer.ErrUnknownEnvironment, "resolver.ResolveList", nil)
		}

		descriptions := make([]materializer.EnvDescription, len(envs))
		for i, e := range envs {
			descriptions[i] = e.Describe()
		}
		sort.Slice(descriptions, func(i, j int) bool {
			return strings.ToLower(descriptions[i].Name) < strings.ToLower(descriptions[j].Name)
		})

		r.listCache.Put(commit, descriptions)
		return descriptions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]materializer.EnvDescription), nil
}

// BranchHead resolves branch to its tip commit without fetching, per the
// design's choice of no implicit fetch for determinism.
func (r *Resolver) BranchHead(branch, remote string) (string, error) {
	r.ws.Lock()
	defer r.ws.Unlock()
	return r.ws.HeadOf(branch, remote)
}
