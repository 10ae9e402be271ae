package plan

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/standardbeagle/vfsboot/internal/vferrors"
	"github.com/standardbeagle/vfsboot/internal/vfs"
)

// Job is one entry in a Jobs plan node: `[x] <priority> <assignee>:
// <description>` where `[x]` marks completion (spec.md §3.5). Lower
// priority sorts first; insertion order breaks ties, matching
// planner.h's PlanJobs ("lower number = higher priority").
type Job struct {
	Description string
	Priority    int
	Completed   bool
	Assignee    string
}

func renderJobs(jobs []Job) string {
	idx := make([]int, len(jobs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return jobs[idx[a]].Priority < jobs[idx[b]].Priority
	})
	var b strings.Builder
	for _, i := range idx {
		j := jobs[i]
		mark := " "
		if j.Completed {
			mark = "x"
		}
		fmt.Fprintf(&b, "[%s] %d %s: %s\n", mark, j.Priority, j.Assignee, j.Description)
	}
	return b.String()
}

// parseJobs parses the Jobs text form. Blank lines are skipped;
// malformed lines raise ParseError.
func parseJobs(text string) ([]Job, error) {
	var jobs []Job
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		job, err := parseJobLine(line)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func parseJobLine(line string) (Job, error) {
	if !strings.HasPrefix(line, "[") {
		return Job{}, vferrors.ParseError("plan.jobs.parse", "line must start with [ ] or [x]: "+line)
	}
	closeIdx := strings.IndexByte(line, ']')
	if closeIdx < 0 {
		return Job{}, vferrors.ParseError("plan.jobs.parse", "unterminated completion marker: "+line)
	}
	mark := line[1:closeIdx]
	completed := mark == "x"
	if !completed && mark != " " && mark != "" {
		return Job{}, vferrors.ParseError("plan.jobs.parse", "completion marker must be 'x' or blank: "+line)
	}

	rest := strings.TrimSpace(line[closeIdx+1:])
	fields := strings.SplitN(rest, " ", 2)
	if len(fields) != 2 {
		return Job{}, vferrors.ParseError("plan.jobs.parse", "missing priority/assignee: "+line)
	}
	priority, err := strconv.Atoi(fields[0])
	if err != nil {
		return Job{}, vferrors.ParseError("plan.jobs.parse", "priority is not an integer: "+line)
	}

	colon := strings.IndexByte(fields[1], ':')
	if colon < 0 {
		return Job{}, vferrors.ParseError("plan.jobs.parse", "missing ':' before description: "+line)
	}
	assignee := strings.TrimSpace(fields[1][:colon])
	description := strings.TrimSpace(fields[1][colon+1:])

	return Job{Description: description, Priority: priority, Completed: completed, Assignee: assignee}, nil
}

// AddJob appends a new incomplete job to n, a Jobs plan node.
func AddJob(n *vfs.Node, description string, priority int, assignee string) error {
	p, ok := n.Payload.(*node)
	if !ok || p.kind != KindJobs {
		return vferrors.Internal("plan.jobs.add", n.Name+" is not a Jobs node")
	}
	p.jobs = append(p.jobs, Job{Description: description, Priority: priority, Assignee: assignee})
	return nil
}

// CompleteJob marks the job at index as completed.
func CompleteJob(n *vfs.Node, index int) error {
	p, ok := n.Payload.(*node)
	if !ok || p.kind != KindJobs {
		return vferrors.Internal("plan.jobs.complete", n.Name+" is not a Jobs node")
	}
	if index < 0 || index >= len(p.jobs) {
		return vferrors.Internal("plan.jobs.complete", "index out of range")
	}
	p.jobs[index].Completed = true
	return nil
}

// SortedJobIndices returns the indices of n's jobs in display order:
// priority ascending, insertion order for ties (planner.h's
// getSortedJobIndices).
func SortedJobIndices(n *vfs.Node) ([]int, error) {
	p, ok := n.Payload.(*node)
	if !ok || p.kind != KindJobs {
		return nil, vferrors.Internal("plan.jobs.sorted", n.Name+" is not a Jobs node")
	}
	idx := make([]int, len(p.jobs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return p.jobs[idx[a]].Priority < p.jobs[idx[b]].Priority
	})
	return idx, nil
}

// Jobs returns a copy of n's parsed job list.
func Jobs(n *vfs.Node) ([]Job, error) {
	p, ok := n.Payload.(*node)
	if !ok || p.kind != KindJobs {
		return nil, vferrors.Internal("plan.jobs", n.Name+" is not a Jobs node")
	}
	out := make([]Job, len(p.jobs))
	copy(out, p.jobs)
	return out, nil
}
