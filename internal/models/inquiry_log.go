package models

import (
	"regexp"
	"strings"
	"time"
)

// InquiryLogType classifies lifecycle log entries.
type InquiryLogType string

const (
	LogNew              InquiryLogType = "NEW"
	LogAccepted         InquiryLogType = "ACCEPTED"
	LogRejected         InquiryLogType = "REJECTED"
	LogOutdated         InquiryLogType = "OUTDATED"
	LogOutdatedReminder InquiryLogType = "OUTDATED_REMINDER"
)

// InquiryLog is an immutable audit record of a lifecycle event. The log stream
// doubles as the idempotency ledger: the escalation scan decides "already
// done" purely from the existence and count of entries, and a unique index on
// (inquiry_id, log_type, seq) makes the append itself race-safe. Seq is 0 for
// every type except reminders, which are numbered 1 and 2.
type InquiryLog struct {
	ID        string         `bson:"_id" json:"id"`
	InquiryID string         `bson:"inquiry_id" json:"inquiry_id"`
	OwnerID   string         `bson:"owner_id" json:"owner_id"`
	RelatedID string         `bson:"related_id" json:"related_id"`
	LogType   InquiryLogType `bson:"log_type" json:"log_type"`
	Seq       int            `bson:"seq" json:"-"`
	CreatedAt time.Time      `bson:"created_at" json:"created_at"`
}

// LogTemplate is the message template attached to a log type. Bodies carry
// three kinds of markers resolved at render time:
//
//	<>            display name of the related actor
//	#role#        role string of the related actor
//	#male|female# text picked by the related actor's gender ("K" = female)
//
// SendMail decides whether appending a log of this type also hands a rendered
// mail to the mailing collaborator.
type LogTemplate struct {
	LogType  InquiryLogType `bson:"_id" json:"log_type"`
	Subject  string         `bson:"subject" json:"subject"`
	Body     string         `bson:"body" json:"body"`
	SendMail bool           `bson:"send_mail" json:"send_mail"`
}

var genderMarker = regexp.MustCompile(`#(\w+)\|(\w+)#`)

func resolveMarkers(text string, related *Profile) string {
	out := strings.ReplaceAll(text, "<>", related.DisplayName())
	out = strings.ReplaceAll(out, "#role#", related.Role)
	female := related.Gender == GenderFemale
	return genderMarker.ReplaceAllStringFunc(out, func(m string) string {
		parts := genderMarker.FindStringSubmatch(m)
		if female {
			return parts[2]
		}
		return parts[1]
	})
}

// Render resolves all markers against the related actor and returns the
// subject and body ready for the mailing collaborator. Gender forms follow
// the related actor, not the reader: the Polish verb must agree with the
// person the sentence is about ("Anna wysłała", never "Anna wysłał").
func (t *LogTemplate) Render(related *Profile) (subject, body string) {
	return resolveMarkers(t.Subject, related), resolveMarkers(t.Body, related)
}

// DefaultLogTemplates is the bootstrap template set with the production
// Polish copy.
func DefaultLogTemplates() []LogTemplate {
	return []LogTemplate{
		{
			LogType:  LogNew,
			Subject:  "Masz nowe zapytanie o piłkarski kontakt!",
			Body:     "#role# <> #wysłał|wysłała# Ci zapytanie o piłkarski kontakt.",
			SendMail: true,
		},
		{
			LogType:  LogAccepted,
			Subject:  "#role# <> #zaakceptował|zaakceptowała# Twoje zapytanie o piłkarski kontakt!",
			Body:     "#role# <> #zaakceptował|zaakceptowała# Twoje zapytanie. Dane kontaktowe znajdziesz w zakładce Kontakty.",
			SendMail: true,
		},
		{
			LogType:  LogRejected,
			Subject:  "#role# <> #odrzucił|odrzuciła# Twoje zapytanie o piłkarski kontakt!",
			Body:     "#role# <> #odrzucił|odrzuciła# Twoje zapytanie o piłkarski kontakt.",
			SendMail: true,
		},
		{
			LogType:  LogOutdated,
			Subject:  "Zwiększamy Twoją pulę zapytań o piłkarski kontakt!",
			Body:     "Twoje zapytanie do <> pozostało bez odpowiedzi, więc zwracamy je do Twojej puli.",
			SendMail: true,
		},
		{
			LogType:  LogOutdatedReminder,
			Subject:  "Masz zapytanie o piłkarski kontakt czekające na decyzję.",
			Body:     "#role# <> wciąż czeka na Twoją decyzję w sprawie zapytania o kontakt.",
			SendMail: true,
		},
	}
}
