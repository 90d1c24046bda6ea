package breakdown

import (
	"fmt"
	"strings"
)

const minSuggestedTasks = 5

const promptTemplate = `Break down this goal/situation into specific, actionable tasks with priorities and deadlines:

"%s"

Return ONLY a JSON array of tasks in this exact format:
[
  {
    "title": "Specific actionable task",
    "priority": "High|Medium|Low",
    "deadline": "Tonight|Tomorrow|This week|etc"
  }
]

Make tasks specific, actionable, and granular. Include %s tasks maximum.`

// BuildPrompt renders the decomposition instruction for input.
func BuildPrompt(input string, maxTasks int) string {
	if maxTasks <= 0 {
		maxTasks = DefaultMaxTasks
	}
	count := fmt.Sprintf("%d-%d", minSuggestedTasks, maxTasks)
	if maxTasks <= minSuggestedTasks {
		count = fmt.Sprintf("%d", maxTasks)
	}
	return fmt.Sprintf(promptTemplate, strings.TrimSpace(input), count)
}
