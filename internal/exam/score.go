package exam

// Score computes the percentage of correctly answered questions. Questions
// must be in canonical order (ascending id, the order GetTest returns) and
// answers are selected option indices, one per question in that same order.
//
// When the answer count differs from the question count, only the
// overlapping prefix is scored; extra answers are ignored and missing ones
// count as wrong. Services reject mismatched lengths up front when strict
// mode is on. An empty question set scores 0.
func Score(questions []Question, answers []int) float64 {
	total := len(questions)
	if total == 0 {
		return 0
	}
	correct := 0
	for i, answer := range answers {
		if i >= total {
			break
		}
		if questions[i].CorrectOption == answer {
			correct++
		}
	}
	return float64(correct) / float64(total) * 100
}
