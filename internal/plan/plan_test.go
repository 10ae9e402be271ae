package plan

import (
	"testing"

	"github.com/standardbeagle/vfsboot/internal/vfs"
	"github.com/stretchr/testify/require"
)

func TestCreateFreeformRoundTrips(t *testing.T) {
	store := vfs.NewStore()
	require.NoError(t, store.Mkdir("/plan", 0))

	_, err := Create(store, "/plan", "root", KindRoot, "top level strategy", 0)
	require.NoError(t, err)

	content, err := store.Read("/plan/root", intPtr(0))
	require.NoError(t, err)
	require.Equal(t, "top level strategy", content)

	require.NoError(t, store.Write("/plan/root", []byte("revised"), 0))
	content, err = store.Read("/plan/root", intPtr(0))
	require.NoError(t, err)
	require.Equal(t, "revised", content)
}

func TestCreateLineListRoundTrips(t *testing.T) {
	store := vfs.NewStore()
	require.NoError(t, store.Mkdir("/plan", 0))

	_, err := Create(store, "/plan", "goals", KindGoals, "ship v1\nwrite docs\n", 0)
	require.NoError(t, err)

	content, err := store.Read("/plan/goals", intPtr(0))
	require.NoError(t, err)
	require.Equal(t, "ship v1\nwrite docs\n", content)
}

func TestAppendLineRejectsFreeformAndJobs(t *testing.T) {
	store := vfs.NewStore()
	require.NoError(t, store.Mkdir("/plan", 0))

	root, err := Create(store, "/plan", "root", KindRoot, "", 0)
	require.NoError(t, err)
	require.Error(t, AppendLine(root, "x"))

	jobs, err := Create(store, "/plan", "jobs", KindJobs, "", 0)
	require.NoError(t, err)
	require.Error(t, AppendLine(jobs, "x"))
}

func TestJobsAddCompleteAndSort(t *testing.T) {
	store := vfs.NewStore()
	require.NoError(t, store.Mkdir("/plan", 0))

	jobsNode, err := Create(store, "/plan", "jobs", KindJobs, "", 0)
	require.NoError(t, err)

	require.NoError(t, AddJob(jobsNode, "write spec", 10, "agent"))
	require.NoError(t, AddJob(jobsNode, "fix bug", 1, "user"))
	require.NoError(t, AddJob(jobsNode, "polish", 1, "agent"))

	idx, err := SortedJobIndices(jobsNode)
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 0}, idx)

	require.NoError(t, CompleteJob(jobsNode, 1))
	jobs, err := Jobs(jobsNode)
	require.NoError(t, err)
	require.True(t, jobs[1].Completed)
	require.False(t, jobs[0].Completed)
}

func TestJobsTextFormRoundTrips(t *testing.T) {
	store := vfs.NewStore()
	require.NoError(t, store.Mkdir("/plan", 0))

	jobsNode, err := Create(store, "/plan", "jobs", KindJobs, "", 0)
	require.NoError(t, err)
	require.NoError(t, AddJob(jobsNode, "ship it", 5, "user"))
	require.NoError(t, CompleteJob(jobsNode, 0))

	text, err := store.Read("/plan/jobs", intPtr(0))
	require.NoError(t, err)
	require.Equal(t, "[x] 5 user: ship it\n", text)

	require.NoError(t, store.Write("/plan/jobs", []byte("[ ] 2 agent: investigate\n"), 0))
	jobs, err := Jobs(jobsNode)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.Equal(t, "investigate", jobs[0].Description)
	require.False(t, jobs[0].Completed)
}

func TestParseJobsRejectsMalformedLines(t *testing.T) {
	_, err := parseJobs("not a job line\n")
	require.Error(t, err)
}

func TestContextNavigateAndHistory(t *testing.T) {
	c := NewContext()
	require.Equal(t, "/plan", c.CurrentPath)
	require.Equal(t, ModeForward, c.Mode)

	c.NavigateTo("/plan/goals")
	require.Equal(t, "/plan/goals", c.CurrentPath)
	require.Equal(t, []string{"/plan"}, c.History)

	c.Backward()
	require.Equal(t, ModeBackward, c.Mode)

	require.True(t, c.Back())
	require.Equal(t, "/plan", c.CurrentPath)
	require.False(t, c.Back())
}

func TestContextVisibleSet(t *testing.T) {
	c := NewContext()
	c.AddToContext("/plan/goals")
	c.AddToContext("/plan/jobs")
	require.ElementsMatch(t, []string{"/plan/goals", "/plan/jobs"}, c.List())

	c.RemoveFromContext("/plan/goals")
	require.ElementsMatch(t, []string{"/plan/jobs"}, c.List())

	c.ClearContext()
	require.Empty(t, c.List())
}

func intPtr(i int) *int { return &i }
