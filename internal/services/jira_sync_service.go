package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/itsmesamster/reduce-app/internal/clients"
	"github.com/itsmesamster/reduce-app/internal/models"
	"github.com/itsmesamster/reduce-app/pkg/logger"
)

// vwCommentSource tags comments copied over from the VW Jira.
const vwCommentSource = "Cariad Devstack Jira"

// externalUserMarkers flag VW accounts of contractors that also hold an
// account on the ESR side, matched as lowercase substrings of the VW
// display name.
var externalUserMarkers = []string{
	"(extern: esr labs)",
	"(extern: accenture)",
}

// JiraSyncConfig carries the tunables of the VW to ESR Jira sync.
type JiraSyncConfig struct {
	VwProjectKey        string
	VwAssignees         string // JQL user list, e.g. "(ufs1vcn, wvk8ck1)"
	CommentCutoff       string // "2006-01-02", older comments never sync
	IgnoredCommentUsers []string
	ExternalUserMarkers []string
	RefetchAttempts     int
	RefetchDelay        time.Duration
	TicketDelay         time.Duration
	PostBack            bool
	ReportTicket        string
}

// JiraSyncService copies VW/Audi Jira tickets into the ESR Jira and keeps
// descriptions, attachments and comments aligned on every cycle.
type JiraSyncService struct {
	esr         *clients.JiraClient
	vw          *clients.JiraClient
	transformer *Transformer
	reports     *ReportService
	cfg         JiraSyncConfig
}

func NewJiraSyncService(esr, vw *clients.JiraClient, transformer *Transformer, reports *ReportService, cfg JiraSyncConfig) *JiraSyncService {
	if cfg.CommentCutoff == "" {
		cfg.CommentCutoff = "2024-02-04"
	}
	if len(cfg.ExternalUserMarkers) == 0 {
		cfg.ExternalUserMarkers = externalUserMarkers
	}
	if cfg.RefetchAttempts <= 0 {
		cfg.RefetchAttempts = 3
	}
	if cfg.RefetchDelay <= 0 {
		cfg.RefetchDelay = 2 * time.Second
	}
	return &JiraSyncService{
		esr:         esr,
		vw:          vw,
		transformer: transformer,
		reports:     reports,
		cfg:         cfg,
	}
}

func asEsr(t *models.Ticket) *models.EsrTicket { return &models.EsrTicket{Ticket: t} }
func asVw(t *models.Ticket) *models.VwTicket   { return &models.VwTicket{Ticket: t} }

// taskJQL selects the clearing tasks assigned to the sync accounts.
func (s *JiraSyncService) taskJQL() string {
	jql := fmt.Sprintf(
		"project = %s AND labels = Technical_Clearing AND statusCategory not in (Done)",
		s.cfg.VwProjectKey)
	if s.cfg.VwAssignees != "" {
		jql += " AND assignee in " + s.cfg.VwAssignees
	}
	return jql
}

// integrationJQL selects the integration requests opened this year.
func (s *JiraSyncService) integrationJQL() string {
	jql := fmt.Sprintf(
		`project = %s AND issuetype = Integration AND labels in (%s) AND status = "Umsetzung angefragt"`,
		s.cfg.VwProjectKey, strings.Join(integrationLabels, ", "))
	if s.cfg.VwAssignees != "" {
		jql += " AND assignee in " + s.cfg.VwAssignees
	}
	return jql + ` AND status changed to ("Umsetzung angefragt") after startOfYear()`
}

// existingEsr looks up the ESR ticket carrying the VW key as external
// reference. More than one match is a data corruption, never auto picked.
func (s *JiraSyncService) existingEsr(vwID string) (*models.EsrTicket, error) {
	tickets, err := s.esr.TicketsByExternalReference(vwID)
	if err != nil {
		return nil, err
	}
	switch len(tickets) {
	case 0:
		return nil, nil
	case 1:
		return asEsr(tickets[0]), nil
	default:
		keys := make([]string, 0, len(tickets))
		for _, t := range tickets {
			keys = append(keys, t.Key())
		}
		return nil, &MultipleMatchesError{Reference: vwID, Keys: keys}
	}
}

// SyncOne brings one VW ticket and its ESR counterpart in line: create
// the counterpart when missing, then align description, attachments and
// comments.
func (s *JiraSyncService) SyncOne(vwID string) (*models.EsrTicket, error) {
	log := logger.GetLogger()

	esrTicket, err := s.existingEsr(vwID)
	if err != nil {
		return nil, err
	}
	if esrTicket != nil {
		log.Infof("VW %s already present in ESR Jira as %s", vwID, esrTicket.Key())
		if err := s.syncDescription(esrTicket); err != nil {
			return nil, err
		}
	} else {
		esrTicket, err = s.createFromVw(vwID)
		if err != nil {
			return nil, err
		}
	}

	if err := s.syncAttachments(esrTicket); err != nil {
		return nil, err
	}
	if err := s.syncComments(esrTicket); err != nil {
		return nil, err
	}
	if err := s.updateDescriptionDocMentions(esrTicket.Key()); err != nil {
		return nil, err
	}
	return esrTicket, nil
}

// createFromVw converts and creates the ESR counterpart of a VW ticket,
// waits for it to become readable and marks the VW side with the "ESR"
// label.
func (s *JiraSyncService) createFromVw(vwID string) (*models.EsrTicket, error) {
	log := logger.GetLogger()
	log.Infof("Creating a new ESR Jira issue from VW Jira issue %s", vwID)

	raw, err := s.vw.Ticket(vwID)
	if err != nil {
		return nil, err
	}
	draft, err := s.transformer.ToEsr(asVw(raw))
	if err != nil {
		return nil, err
	}

	newKey, err := s.esr.Create(draft.PendingUpdates())
	if err != nil {
		return nil, fmt.Errorf("failed to create ESR Jira issue for VW %s: %w", vwID, err)
	}

	// new issues are not instantly readable after creation
	var created *models.EsrTicket
	for attempt := 1; attempt <= s.cfg.RefetchAttempts; attempt++ {
		time.Sleep(s.cfg.RefetchDelay)
		fresh, err := s.esr.Ticket(newKey)
		if err == nil {
			created = asEsr(fresh)
			break
		}
		if attempt == s.cfg.RefetchAttempts {
			return nil, fmt.Errorf("failed to fetch ESR Jira issue %s after creation: %w", newKey, err)
		}
	}
	log.Infof("Successfully created %s for VW Jira issue %s", newKey, vwID)

	if s.cfg.PostBack {
		if err := s.vw.AddLabel(vwID, "ESR"); err != nil {
			log.Errorf("Failed to add the ESR label to VW issue %s: %v", vwID, err)
		}
	} else {
		log.Warnf("Post back disabled, not adding the ESR label to VW issue %s", vwID)
	}
	return created, nil
}

// syncDescription overwrites the ESR description when the VW one drifted
// beyond formatting noise.
func (s *JiraSyncService) syncDescription(esrTicket *models.EsrTicket) error {
	log := logger.GetLogger()
	vwID := esrTicket.VwID()

	raw, err := s.vw.Ticket(vwID)
	if err != nil {
		return err
	}
	vwDescription := s.replaceAttachmentMentions(asVw(raw).Description(), esrTicket)

	if ApproximateComparison(vwDescription, esrTicket.Description()) {
		log.Debugf("Description of %s matches VW issue %s", esrTicket.Key(), vwID)
		return nil
	}
	if err := s.esr.UpdateDescription(esrTicket.Key(), vwDescription); err != nil {
		return err
	}
	log.Infof("Description of %s was different than VW issue %s and was updated",
		esrTicket.Key(), vwID)
	return nil
}

// syncAttachments uploads the VW attachments still missing on the ESR
// side. Transferred files keep the VW creation time in their name, the
// dated name plus the byte size decides whether a file is already there.
func (s *JiraSyncService) syncAttachments(esrTicket *models.EsrTicket) error {
	log := logger.GetLogger()
	vwID, esrID := esrTicket.VwID(), esrTicket.Key()

	raw, err := s.vw.Ticket(vwID)
	if err != nil {
		return err
	}
	vwDocs := asVw(raw).Attachments()
	if len(vwDocs) == 0 {
		log.Debugf("No attachments found for VW issue %s", vwID)
		return nil
	}

	esrSizes := make(map[string]int64)
	for _, doc := range esrTicket.Attachments() {
		esrSizes[doc.Filename] = doc.Size
	}

	for _, doc := range vwDocs {
		datedName := NameWithDate(doc.Filename, doc.Created)
		if size, ok := esrSizes[datedName]; ok {
			if size != doc.Size {
				return &AttachmentSizeMismatchError{
					Name:       datedName,
					SourceSize: doc.Size,
					TargetSize: size,
				}
			}
			continue
		}

		data, err := s.vw.DownloadAttachment(doc.ID)
		if err != nil {
			log.Errorf("VW Jira document download failed: %s [size: %d] of %s: %v",
				doc.Filename, doc.Size, vwID, err)
			continue
		}
		if err := s.esr.AddAttachment(esrID, datedName, data); err != nil {
			log.Errorf("Jira attachment post failed: %s [size: %d] to %s: %v",
				datedName, doc.Size, esrID, err)
			continue
		}
		log.Infof("Jira attachment post successful: %s [size: %d] to %s",
			datedName, doc.Size, esrID)
	}
	return nil
}

// syncComments copies the VW comments not yet present on the ESR side.
// Sync account chatter and anything before the cutoff date stays behind.
func (s *JiraSyncService) syncComments(esrTicket *models.EsrTicket) error {
	log := logger.GetLogger()
	vwID, esrID := esrTicket.VwID(), esrTicket.Key()

	comments, err := s.vw.Comments(vwID)
	if err != nil {
		return err
	}

	added := 0
	for _, comment := range comments {
		if len(comment.Created) >= 10 && comment.Created[:10] < s.cfg.CommentCutoff {
			continue
		}
		if s.isIgnoredUser(comment.AuthorLogin) {
			continue
		}

		header := s.commentHeader(comment, vwID)

		merged, err := s.esr.AllCommentsMerged(esrID)
		if err != nil {
			return err
		}
		if strings.Contains(merged, header) {
			log.Debugf("Comment header already present on %s:\n%s", esrID, header)
			continue
		}
		if comment.Body != "" && strings.Contains(merged, comment.Body) {
			log.Debugf("Comment text already present on %s", esrID)
			continue
		}

		text, err := s.convertCommentText(comment, esrTicket)
		if err != nil {
			return err
		}
		body := BuildAutoComment(header+"\n\n\U0001F4DD "+text, vwCommentSource)
		if err := s.esr.AddComment(esrID, body); err != nil {
			return err
		}
		added++
	}
	if added > 0 {
		log.Infof("Added %d comments from VW issue %s to %s", added, vwID, esrID)
	}
	return nil
}

func (s *JiraSyncService) isIgnoredUser(login string) bool {
	for _, ignored := range s.cfg.IgnoredCommentUsers {
		if login == ignored {
			return true
		}
	}
	return false
}

// commentHeader renders the provenance line of a copied comment. The
// header doubles as the dedup key, changing its format re-posts every
// comment ever copied.
func (s *JiraSyncService) commentHeader(comment models.Comment, vwID string) string {
	created := strings.ReplaceAll(strings.SplitN(comment.Created, ".", 2)[0], "T", " ")
	updated := strings.ReplaceAll(strings.SplitN(comment.Updated, ".", 2)[0], "T", " ")
	link := fmt.Sprintf("%s/browse/%s?focusedCommentId=%s",
		strings.TrimSuffix(s.vw.ServerURL(), "/"), vwID, comment.ID)

	header := fmt.Sprintf(
		"\U0001F4C6 %s | \U0001F4EE %s (%s) | \U0001F4C6 updated: %s\n\U0001F517 %s",
		created, comment.AuthorEmail, comment.AuthorLogin, updated, link)
	if updated == created {
		header = strings.Replace(header,
			fmt.Sprintf(" | \U0001F4C6 updated: %s", updated), "", 1)
	}
	return header
}

// convertCommentText rewrites a VW comment body for the ESR side: user
// mentions become readable names, attachment mentions pick up their dated
// names and bare ticket keys become links back to the VW server.
func (s *JiraSyncService) convertCommentText(comment models.Comment, esrTicket *models.EsrTicket) (string, error) {
	text := comment.Body
	text = s.rewriteUserMentions(text)
	text = s.replaceAttachmentMentions(text, esrTicket)
	text = s.rewriteTicketMentions(text)
	if text == "" {
		return "", &CommentConversionError{
			Key:    esrTicket.Key(),
			Reason: "empty comment body after conversion",
		}
	}
	return text, nil
}

// rewriteUserMentions resolves "[~login]" mentions, unreadable on the ESR
// side, into display names. Contractors with an ESR account additionally
// get a real ESR mention appended. A mention count mismatch means the
// body does not parse as expected, it is then left untouched.
func (s *JiraSyncService) rewriteUserMentions(text string) string {
	log := logger.GetLogger()

	count := strings.Count(text, "[~")
	parts := strings.Split(text, "[~")
	if len(parts) < 2 {
		return text
	}
	var logins []string
	for _, part := range parts[1:] {
		login := strings.SplitN(part, "]", 2)[0]
		if len(login) == 7 {
			logins = append(logins, login)
		}
	}
	if count != len(logins) {
		log.Errorf("User mention count mismatch, leaving the comment text untouched")
		return text
	}

	seen := make(map[string]bool, len(logins))
	for _, login := range logins {
		if seen[login] {
			continue
		}
		seen[login] = true

		name := login
		if data := s.vw.UserData(login); data != nil {
			if displayName, ok := data["displayName"].(string); ok && displayName != "" {
				name = displayName
			}
		}

		mention := "[~" + login + "]"
		if !s.isExternalEsrUser(name) {
			text = strings.ReplaceAll(text, mention, "*"+name+"*")
			continue
		}

		shortName := strings.SplitN(name, " (EXTERN: ", 2)[0]
		esrUser, err := s.esr.SearchUser(shortName)
		if err != nil {
			log.Errorf("ESR user lookup failed for %q: %v", shortName, err)
			continue
		}
		if esrUser == nil {
			continue
		}
		esrID, _ := esrUser["accountId"].(string)
		text = strings.ReplaceAll(text, mention,
			fmt.Sprintf("*%s* [~accountid:%s]", name, esrID))
	}
	return text
}

func (s *JiraSyncService) isExternalEsrUser(displayName string) bool {
	lower := strings.ToLower(displayName)
	for _, marker := range s.cfg.ExternalUserMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// replaceAttachmentMentions swaps "!name" attachment mentions for the
// dated names the files carry after transfer, so inline previews keep
// working on the ESR side.
func (s *JiraSyncService) replaceAttachmentMentions(text string, esrTicket *models.EsrTicket) string {
	log := logger.GetLogger()
	for _, doc := range esrTicket.Attachments() {
		simpleName := RemoveDatetimeFromName(doc.Filename)
		if simpleName == doc.Filename {
			continue
		}
		if strings.Contains(text, "!"+simpleName) {
			text = strings.ReplaceAll(text, "!"+simpleName, "!"+doc.Filename)
			log.Infof("Replaced attachment mention !%s -> !%s on %s",
				simpleName, doc.Filename, esrTicket.Key())
		}
	}
	return text
}

// rewriteTicketMentions turns bare VW ticket keys into links back to the
// VW server.
func (s *JiraSyncService) rewriteTicketMentions(text string) string {
	prefix := " " + s.cfg.VwProjectKey + "-"
	if !strings.Contains(text, prefix) {
		return text
	}
	link := fmt.Sprintf(" %s/browse/%s-",
		strings.TrimSuffix(s.vw.ServerURL(), "/"), s.cfg.VwProjectKey)
	return strings.ReplaceAll(text, prefix, link)
}

// updateDescriptionDocMentions refreshes the ESR description after the
// attachment sync so inline mentions address the freshly dated names.
func (s *JiraSyncService) updateDescriptionDocMentions(esrID string) error {
	fresh, err := s.esr.Ticket(esrID)
	if err != nil {
		return err
	}
	esrTicket := asEsr(fresh)
	description := esrTicket.Description()
	updated := s.replaceAttachmentMentions(description, esrTicket)
	if updated == description {
		return nil
	}
	if err := s.esr.UpdateDescription(esrID, updated); err != nil {
		return err
	}
	logger.GetLogger().Infof("Updated description of %s for the new attachment names", esrID)
	return nil
}

// Sync runs one full VW to ESR cycle over the task and integration
// queries. One broken ticket never stops the batch, it lands in the
// report instead.
func (s *JiraSyncService) Sync() (*models.SyncReport, error) {
	log := logger.GetLogger()
	report := models.NewSyncReport("vwjira2esrjira")

	if err := s.esr.Check(); err != nil {
		return nil, &ConnectionError{System: "ESR Jira", Err: err}
	}
	if err := s.vw.Check(); err != nil {
		return nil, &ConnectionError{System: "VW Jira", Err: err}
	}

	queries := []struct {
		name string
		jql  string
	}{
		{"TASK", s.taskJQL()},
		{"INTEGRATION", s.integrationJQL()},
	}
	var found []*models.VwTicket
	for _, query := range queries {
		tickets, err := s.vw.QueryAll(query.jql)
		if err != nil {
			return nil, fmt.Errorf("VW Jira %s query failed: %w", query.name, err)
		}
		for _, t := range tickets {
			found = append(found, asVw(t))
		}
	}
	report.TotalFound = len(found)
	log.Infof("Found %d VW Jira issues to be synced", len(found))

	for _, vwTicket := range found {
		if s.cfg.TicketDelay > 0 {
			time.Sleep(s.cfg.TicketDelay)
		}
		vwID := vwTicket.Key()

		if issueType := vwTicket.IssueType(); !s.transformer.Supports(issueType) {
			err := &UnsupportedIssueTypeError{Key: vwID, IssueType: issueType}
			log.Warnf("Skipping VW issue %s: %v", vwID, err)
			report.RecordFailed(vwID, err)
			continue
		}

		log.Infof("#### Starting to sync VW Jira issue %s ####", vwID)
		esrTicket, err := s.SyncOne(vwID)
		if err != nil {
			log.Errorf("Failed to sync VW issue %s: %v", vwID, err)
			report.RecordFailed(vwID, err)
			continue
		}
		log.Infof("#### Sync done for VW Jira issue %s -> %s ####", vwID, esrTicket.Key())
		report.RecordSynced(vwID, esrTicket.UIURL())
	}

	report.Finalize()
	if s.reports != nil {
		s.reports.SaveAndPost(report, s.cfg.ReportTicket)
	}
	return report, nil
}
