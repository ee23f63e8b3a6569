package normalize

import (
	"fmt"
	"strings"
	"time"
)

const systemPrompt = "You convert one natural-language to-do sentence, in Korean or English, into a structured task. " +
	"Answer with a single JSON object matching the schema and nothing else."

// BuildPrompt renders the extraction instructions for input relative to ref
func BuildPrompt(input string, ref time.Time) string {
	h := RelativeDates(ref)

	var b strings.Builder
	fmt.Fprintf(&b, "Reference date: %s (%s)\n\n", h.Today, ref.Weekday())
	b.WriteString("Rules:\n")
	b.WriteString("- title: the shortest phrase that captures the core action. Drop descriptive modifiers, dates and times. Keep the input language.\n")
	b.WriteString("- description: extra detail worth keeping, or null.\n")
	fmt.Fprintf(&b, "- due_date (YYYY-MM-DD): today/오늘 = %s, tomorrow/내일 = %s, day after tomorrow/모레 = %s, this Friday/이번 주 금요일 = %s, next Monday/다음 주 월요일 = %s. Resolve other dates against the reference date. No date mentioned = %s.\n",
		h.Today, h.Tomorrow, h.DayAfterTomorrow, h.ThisFriday, h.NextMonday, h.Today)
	b.WriteString("- due_time (HH:MM, 24-hour): morning/아침/오전 = 09:00, noon/점심/정오 = 12:00, afternoon/오후 = 14:00, evening/저녁 = 18:00, night/밤 = 21:00. Convert explicit clock times to 24-hour form (오후 3시 = 15:00, 3pm = 15:00). No time mentioned = 09:00.\n")
	b.WriteString("- priority: high for urgent/important/quickly/must/ASAP/급한/급하게/중요/빨리/반드시/꼭; low for leisurely/slowly/someday/whenever/여유/천천히/언젠가; otherwise medium.\n")
	b.WriteString("- category: every matching label from work (meeting, report, project, client, office, 회의, 보고서, 업무, 회사, 프로젝트), ")
	b.WriteString("health (exercise, gym, run, doctor, hospital, medicine, 운동, 헬스, 병원, 약, 산책), ")
	b.WriteString("study (study, exam, homework, course, read, 공부, 시험, 과제, 강의, 독서), ")
	b.WriteString("personal (shopping, family, friend, chores, 장보기, 가족, 친구, 청소). No match = [\"personal\"].\n\n")
	fmt.Fprintf(&b, "Sentence: %q\n", input)
	return b.String()
}
