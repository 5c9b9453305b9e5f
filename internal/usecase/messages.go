package usecase

import (
	"fmt"
	"html"

	"JobsScanner/internal/domain"
)

const subjectPrefix = "[UNJobs Scraper]"

// NewJobMessage is the alert sent once for every newly stored job.
func NewJobMessage(recipient string, job domain.JobRecord) domain.Message {
	where := ""
	if job.DutyStation != "" {
		where = " in " + job.DutyStation
	}

	return domain.Message{
		Recipient: recipient,
		Subject:   fmt.Sprintf("%s New job added - %s at %s", subjectPrefix, job.Title, job.Organization),
		Text: fmt.Sprintf("A new job has been added: %s at %s%s\n%s",
			job.Title, job.Organization, where, job.URL),
		HTML: fmt.Sprintf(`<div><div><a href="%s">%s at %s</a></div><div>%s</div></div>`,
			html.EscapeString(job.URL),
			html.EscapeString(job.Title),
			html.EscapeString(job.Organization),
			html.EscapeString(job.Snippet)),
	}
}

// FailureAlert tells the operator that cycles keep failing.
func FailureAlert(recipient string, failures int, err error) domain.Message {
	return domain.Message{
		Recipient: recipient,
		Subject:   fmt.Sprintf("%s Job collection failing", subjectPrefix),
		Text: fmt.Sprintf("Job collection failed %d times in a row and keeps retrying.\nLast error: %v",
			failures, err),
	}
}
