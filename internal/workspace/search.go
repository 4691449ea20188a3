package workspace

import (
	"sort"
	"strings"

	taskdomain "miinplanner-backend/internal/task/domain"
	"miinplanner-backend/pkg/fuzzy"
)

type scoredTask struct {
	task  taskdomain.Task
	score float64
}

func fuzzySearch(tasks []taskdomain.Task, query string, limit int) []taskdomain.Task {
	query = strings.TrimSpace(query)
	if query == "" {
		return []taskdomain.Task{}
	}

	var matches []scoredTask
	for _, t := range tasks {
		desc := ""
		if t.Description != nil {
			desc = *t.Description
		}
		if !fuzzy.MatchTask(query, t.Title, desc, t.Tags) {
			continue
		}
		matches = append(matches, scoredTask{task: t, score: fuzzy.ScoreTask(query, t.Title, desc, t.Tags)})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})

	results := make([]taskdomain.Task, 0, min(len(matches), limit))
	for _, m := range matches {
		if len(results) == limit {
			break
		}
		results = append(results, m.task)
	}
	return results
}
