package resolver

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"

	"github.com/cloudshipai/gitconfd/internal/materializer"
	"github.com/cloudshipai/gitconfd/internal/materializer/workspace"
)

func newFixtureRepo(t *testing.T, dir string, files map[string]string) string {
	t.Helper()

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	wt, err := repo.Worktree()
	require.NoError(t, err)

	for name, contents := range files {
		full := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(contents), 0o644))
		_, err := wt.Add(name)
		require.NoError(t, err)
	}

	hash, err := wt.Commit("fixture commit", &git.CommitOptions{
		Author: &object.Signature{Name: "gitconfd tests", Email: "gitconfd@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	return hash.String()[:7]
}

func newTestResolver(t *testing.T, remoteDir string, cacheSize int) *Resolver {
	t.Helper()

	clonePath := filepath.Join(t.TempDir(), "clone")
	ws := workspace.New("file://"+remoteDir, workspace.Credentials{Kind: workspace.CredAnonymous}, "", clonePath)
	ws.Lock()
	require.NoError(t, ws.Initialize())
	ws.Unlock()

	envRegex := regexp.MustCompile("(?i).+")
	r, err := New(ws, cacheSize, envRegex, nil)
	require.NoError(t, err)
	return r
}

func TestResolve_FreshMissThenHit(t *testing.T) {
	remoteDir := t.TempDir()
	sha := newFixtureRepo(t, remoteDir, map[string]string{"config.TEST.json": `{"k":"v"}`})

	r := newTestResolver(t, remoteDir, 2)

	env, err := r.Resolve(sha, "TEST")
	require.NoError(t, err)
	require.Equal(t, "TEST", env.Name)

	env2, err := r.Resolve(sha, "TEST")
	require.NoError(t, err)
	require.Equal(t, env, env2)
}

func TestResolve_Eviction(t *testing.T) {
	remoteDir := t.TempDir()
	sha := newFixtureRepo(t, remoteDir, map[string]string{
		"config.A.json": `{}`,
		"config.B.json": `{}`,
		"config.C.json": `{}`,
	})

	r := newTestResolver(t, remoteDir, 2)

	_, err := r.Resolve(sha, "A")
	require.NoError(t, err)
	_, err = r.Resolve(sha, "B")
	require.NoError(t, err)
	_, err = r.Resolve(sha, "C")
	require.NoError(t, err)

	require.Equal(t, 2, r.envCache.Len())

	_, ok := r.envCache.Get(envKey(sha, "A"))
	require.False(t, ok, "A should have been evicted")

	_, ok = r.envCache.Get(envKey(sha, "C"))
	require.True(t, ok, "C should still be cached")
}

func TestResolveList_EmptyIsNotFoundAndNotCached(t *testing.T) {
	remoteDir := t.TempDir()
	sha := newFixtureRepo(t, remoteDir, map[string]string{"readme.txt": "nothing matches"})

	r := newTestResolver(t, remoteDir, 2)

	_, err := r.ResolveList(sha)
	require.Error(t, err)
	require.True(t, materializer.IsUnknownEnvironment(err))

	_, ok := r.listCache.Get(sha)
	require.False(t, ok)
}

func TestResolveList_ReturnsSortedDescriptions(t *testing.T) {
	remoteDir := t.TempDir()
	sha := newFixtureRepo(t, remoteDir, map[string]string{
		"config.staging.json": `{"EnvironmentType":"shared"}`,
		"config.beta.json":    `{}`,
	})

	r := newTestResolver(t, remoteDir, 2)

	descriptions, err := r.ResolveList(sha)
	require.NoError(t, err)
	require.Len(t, descriptions, 2)
	require.Equal(t, "beta", descriptions[0].Name)
	require.Equal(t, "staging", descriptions[1].Name)
	require.Equal(t, "shared", descriptions[1].Type)
}

func TestBranchHead_ResolvesWithoutFetch(t *testing.T) {
	remoteDir := t.TempDir()
	sha := newFixtureRepo(t, remoteDir, map[string]string{"a.txt": "a"})

	r := newTestResolver(t, remoteDir, 2)

	head, err := r.BranchHead("master", "origin")
	require.NoError(t, err)
	require.Equal(t, sha, head)
}

func TestResolve_UnknownCommit(t *testing.T) {
	remoteDir := t.TempDir()
	newFixtureRepo(t, remoteDir, map[string]string{"config.TEST.json": `{}`})

	r := newTestResolver(t, remoteDir, 2)

	_, err := r.Resolve("0000000", "TEST")
	require.Error(t, err)
	require.True(t, materializer.IsUnknownCommit(err))
}
