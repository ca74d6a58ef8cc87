package document

import (
	"fmt"
	"strconv"
	"time"

	"seqsubmit/internal/identifier"
)

const (
	submissionDateLayout    = "2006-01-02T15:04:05.000-07:00"
	submissionCommentLayout = "Monday January 02 15:04:05 MST 2006"
)

// SubmissionAlias is center.study.year.
func SubmissionAlias(center, studyID string, now time.Time) string {
	return center + "." + studyID + "." + strconv.Itoa(now.Year())
}

func (a *Assembler) submission(in Input, now time.Time) *Node {
	c := a.center
	contact := El("CONTACT").
		With("name", c.ContactName).
		With("inform_on_status", "mailto:"+c.ContactEmail).
		With("inform_on_error", "mailto:"+c.ContactEmail)

	actions := El("ACTIONS",
		El("ACTION", El("PROTECT")),
		El("ACTION", El("RELEASE")),
		El("ACTION", El("ADD").
			With("source", identifier.ExperimentFile(in.ExperimentID)).
			With("schema", "experiment")),
		El("ACTION", El("ADD").
			With("source", identifier.RunFile(in.RunID)).
			With("schema", "run")),
	)

	sub := El("SUBMISSION",
		El("CONTACTS", contact),
		actions,
		El("SUBMISSION_ATTRIBUTES",
			El("SUBMISSION_ATTRIBUTE", Leaf("TAG", c.SiteTag), Leaf("VALUE", c.SiteValue)),
		),
	).
		With("submission_date", now.Format(submissionDateLayout)).
		With("submission_comment", fmt.Sprintf("Produced by user %s on %s", c.SubmittedBy, now.Format(submissionCommentLayout))).
		With("lab_name", c.LabName).
		With("alias", SubmissionAlias(c.Name, in.Sample.StudyID.String(), now)).
		With("center_name", c.Name)
	return setRoot("SUBMISSION_SET", a.schemas.Submission, sub)
}
