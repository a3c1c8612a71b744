package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/itsmesamster/reduce-app/internal/clients"
	"github.com/itsmesamster/reduce-app/internal/models"
	"github.com/itsmesamster/reduce-app/pkg/logger"
)

// noKpmAccessComment marks Jira tickets whose KPM record the sync user
// cannot read. Posted once, then recognized on later cycles.
const noKpmAccessComment = "No access in KPM"

// jiraTextFieldLimit caps text custom fields on the Jira side.
const jiraTextFieldLimit = 32767

// questionStatuses are the Jira statuses whose KPM update must carry the
// "Question to OEM" text.
var questionStatuses = []string{"Rejected", "Info Missing"}

// kpmClosedStatuses are the KPM lifecycle codes past which nothing syncs.
var kpmClosedStatuses = []string{"5", "6"}

// postResult is the outcome of a KPM post attempt.
type postResult int

const (
	postFailed postResult = iota
	postDone
	postAlreadyPresent
	postSkipped
)

// KpmSyncConfig carries the tunables of the KPM to ESR Jira sync.
type KpmSyncConfig struct {
	SupplierUserIDs    []string
	Plant              string
	OrgUnit            string
	ProjectKey         string // target issue key prefix, e.g. "AHCP5"
	WindowHours        int
	MondayWindowHours  int
	ChangeWindowHours  int // Jira side lookback of the batch queries
	AnswerLookbackDays int
	TicketDelay        time.Duration
	RefetchAttempts    int
	RefetchDelay       time.Duration
	ReportTicket       string
}

// KpmSyncService keeps KPM development problems and their ESR Jira
// tickets aligned, in both directions: problem data, process steps and
// documents flow towards Jira, statuses and questions flow back to KPM.
type KpmSyncService struct {
	esr     *clients.JiraClient
	kpm     *clients.KpmClient
	mapper  *KpmMapper
	reports *ReportService
	cfg     KpmSyncConfig
}

func NewKpmSyncService(esr *clients.JiraClient, kpm *clients.KpmClient, mapper *KpmMapper, reports *ReportService, cfg KpmSyncConfig) *KpmSyncService {
	if cfg.WindowHours <= 0 {
		cfg.WindowHours = 36
	}
	if cfg.MondayWindowHours <= 0 {
		cfg.MondayWindowHours = 84
	}
	if cfg.ChangeWindowHours <= 0 {
		cfg.ChangeWindowHours = 4
	}
	if cfg.AnswerLookbackDays <= 0 {
		cfg.AnswerLookbackDays = 7
	}
	if cfg.RefetchAttempts <= 0 {
		cfg.RefetchAttempts = 3
	}
	if cfg.RefetchDelay <= 0 {
		cfg.RefetchDelay = 2 * time.Second
	}
	return &KpmSyncService{
		esr:     esr,
		kpm:     kpm,
		mapper:  mapper,
		reports: reports,
		cfg:     cfg,
	}
}

// meetsConditions decides whether a KPM problem belongs into the ESR
// Jira at all: assigned to one of our supplier users, not closed, and
// already handed over to the supplier.
func (s *KpmSyncService) meetsConditions(problem *models.KpmProblem) error {
	log := logger.GetLogger()
	kpmID := problem.ProblemNumber()

	supplierUser := problem.SupplierUserID()
	if !contains(s.cfg.SupplierUserIDs, supplierUser) {
		return &SyncConditionError{ID: kpmID, Reason: "KPM supplier user missing or not ours"}
	}
	log.Infof("SYNC CONDITION MET for KPM %s: supplier user %s is ours", kpmID, supplierUser)

	status := problem.ProblemStatus()
	if contains(kpmClosedStatuses, status) {
		return &SyncConditionError{ID: kpmID, Reason: fmt.Sprintf("KPM ticket already closed [%s]", status)}
	}
	log.Infof("SYNC CONDITION MET for KPM %s: problem status %s is not closed", kpmID, status)

	if problem.SupplierStatus() == "" {
		return &SyncConditionError{ID: kpmID, Reason: "KPM supplier status not set"}
	}
	log.Infof("SYNC CONDITION MET for KPM %s: supplier status exists", kpmID)
	return nil
}

// validateInbox checks the supplier routing of the problem against the
// configured inbox before anything is posted back to KPM.
func (s *KpmSyncService) validateInbox(kpmID string) (bool, error) {
	problem, err := s.kpm.Problem(kpmID)
	if err != nil {
		return false, err
	}
	plant, orgUnit := problem.SupplierPlantAndOrgUnit()
	if plant != s.cfg.Plant || orgUnit != s.cfg.OrgUnit {
		logger.GetLogger().Warnf(
			"KPM %s sits in a different inbox (%s/%s) than %s/%s, not posting back",
			kpmID, plant, orgUnit, s.cfg.Plant, s.cfg.OrgUnit)
		return false, nil
	}
	return true, nil
}

// existingByKpmID looks up the ESR ticket carrying the KPM id as external
// reference. More than one match is a data corruption, never auto picked.
func (s *KpmSyncService) existingByKpmID(kpmID string) (*models.EsrTicket, error) {
	tickets, err := s.esr.TicketsByExternalReference(kpmID)
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
		return nil, &MultipleMatchesError{Reference: kpmID, Keys: keys}
	}
}

// addIssue returns the ESR ticket of a KPM problem, creating it first
// when missing. Creation is announced back to KPM as an OPEN supplier
// response carrying the new Jira key.
func (s *KpmSyncService) addIssue(kpmID string) (*models.EsrTicket, error) {
	log := logger.GetLogger()

	if existing, err := s.existingByKpmID(kpmID); err != nil {
		return nil, err
	} else if existing != nil {
		log.Infof("KPM %s already present in ESR Jira as %s", kpmID, existing.Key())
		return existing, nil
	}

	problem, err := s.kpm.Problem(kpmID)
	if err != nil {
		return nil, err
	}
	if err := s.meetsConditions(problem); err != nil {
		return nil, err
	}
	log.Infof("KPM %s meets all conditions to be added to Jira", kpmID)

	draft, err := s.mapper.ToJira(problem)
	if err != nil {
		return nil, err
	}
	newKey, err := s.esr.Create(draft.PendingUpdates())
	if err != nil {
		return nil, fmt.Errorf("failed to create Jira issue for KPM %s: %w", kpmID, err)
	}
	if s.cfg.ProjectKey != "" && !strings.HasPrefix(newKey, s.cfg.ProjectKey+"-") {
		return nil, fmt.Errorf("Jira issue creation for KPM %s returned unexpected key %s", kpmID, newKey)
	}

	// new issues are not instantly readable after creation
	var created *models.EsrTicket
	for attempt := 1; attempt <= s.cfg.RefetchAttempts; attempt++ {
		time.Sleep(s.cfg.RefetchDelay)
		created, err = s.existingByKpmID(kpmID)
		if created != nil {
			break
		}
		if attempt == s.cfg.RefetchAttempts {
			return nil, fmt.Errorf("failed to fetch Jira issue %s after creation for KPM %s: %v",
				newKey, kpmID, err)
		}
	}
	log.Infof("Successfully created %s for KPM %s", newKey, kpmID)

	open, _ := models.StatusForJiraName("Open")
	result, err := s.postKpmStatus(kpmID, newKey, open, "")
	if err != nil {
		return nil, err
	}
	if result == postFailed {
		return nil, fmt.Errorf("failed to add the creation supplier response for KPM %s", kpmID)
	}
	return created, nil
}

// postKpmStatus posts one supplier response for a Jira lifecycle status.
// An empty status code keeps the current supplier status and only adds
// context.
func (s *KpmSyncService) postKpmStatus(kpmID, jiraID string, status models.KpmStatus, reason string) (postResult, error) {
	ok, err := s.validateInbox(kpmID)
	if err != nil || !ok {
		return postSkipped, err
	}
	code := status.Code
	if code == "" {
		problem, err := s.kpm.Problem(kpmID)
		if err != nil {
			return postFailed, err
		}
		code = problem.SupplierStatus()
	}
	message := status.Comment
	if status.NeedsResponse && reason != "" {
		message += reason
	}
	return s.addSupplierResponse(kpmID, jiraID, code, message)
}

// addSupplierResponse stamps, dedups, posts and verifies one supplier
// response. KPM offers no read-back of a post, so the verification
// re-reads the newest step and compares approximately.
func (s *KpmSyncService) addSupplierResponse(kpmID, jiraID, statusCode, message string) (postResult, error) {
	log := logger.GetLogger()
	text := strings.TrimSpace(SupplierResponsePrefix(message))

	last, err := s.kpm.LastSupplierResponse(kpmID)
	if err != nil {
		return postFailed, err
	}
	if last != nil && text != "" && ApproximateComparison(text, last.ForJiraUI()) {
		log.Warnf("No new supplier response to post for KPM %s: already in the last %q",
			kpmID, clients.StepSupplierResponse)
		return postAlreadyPresent, nil
	}

	if err := s.kpm.PostSupplierResponse(kpmID, jiraID, statusCode, text); err != nil {
		return postFailed, err
	}
	if !s.kpm.PostBackEnabled() {
		return postDone, nil
	}

	// KPM needs a moment before the new step shows up in the list
	time.Sleep(time.Second)
	updated, err := s.kpm.LastSupplierResponse(kpmID)
	if err != nil {
		return postFailed, err
	}
	if updated != nil && ApproximateComparison(text, updated.ForJiraUI()) {
		log.Infof("New supplier response added successfully to KPM %s (status %s)", kpmID, statusCode)
		return postDone, nil
	}
	return postFailed, fmt.Errorf("supplier response post to KPM %s was not confirmed", kpmID)
}

// addSupplierQuestion dedups, posts and verifies one supplier question.
func (s *KpmSyncService) addSupplierQuestion(kpmID, question string) (postResult, error) {
	log := logger.GetLogger()
	question = strings.TrimSpace(question)

	last, err := s.kpm.LastSupplierQuestion(kpmID)
	if err != nil {
		return postFailed, err
	}
	if last != nil && question != "" && ApproximateComparison(question, last.ForJiraUI()) {
		log.Warnf("No new supplier question to post for KPM %s: already in the last %q",
			kpmID, clients.StepSupplierQuestion)
		return postAlreadyPresent, nil
	}

	if err := s.kpm.PostSupplierQuestion(kpmID, question); err != nil {
		return postFailed, err
	}
	if !s.kpm.PostBackEnabled() {
		return postDone, nil
	}

	time.Sleep(time.Second)
	updated, err := s.kpm.LastSupplierQuestion(kpmID)
	if err != nil {
		return postFailed, err
	}
	if updated != nil && ApproximateComparison(question, updated.ForJiraUI()) {
		log.Infof("New supplier question added successfully to KPM %s", kpmID)
		return postDone, nil
	}
	return postFailed, fmt.Errorf("supplier question post to KPM %s was not confirmed", kpmID)
}

// postQuestionToOEM moves a pending "Question to OEM" over to KPM, clears
// the Jira field and leaves an audit comment on success.
func (s *KpmSyncService) postQuestionToOEM(esrTicket *models.EsrTicket) (postResult, error) {
	log := logger.GetLogger()
	kpmID, esrID := esrTicket.KpmID(), esrTicket.Key()

	question := esrTicket.QuestionToOEM()
	if question == "" {
		return postSkipped, nil
	}
	if esrTicket.Status() == "Rejected" {
		question = fmt.Sprintf("Rejected -> [%s]: %s", esrTicket.CauseOfReject(), question)
	}
	log.Infof("Jira Question to OEM found on %s, will try to post to KPM %s", esrID, kpmID)

	ok, err := s.validateInbox(kpmID)
	if err != nil || !ok {
		return postSkipped, err
	}

	result, err := s.addSupplierQuestion(kpmID, question)
	if err != nil || result == postFailed {
		return result, err
	}

	// posted (or already there): drop the question from the Jira side
	fields := models.NewEsrFieldMap()
	if err := s.esr.Update(esrID, map[string]any{
		fields.Extra(models.FieldQuestionToOEM): "",
	}); err != nil {
		return postFailed, err
	}
	if result == postDone {
		comment := BuildAutoComment(
			"✅ *Question to OEM* successfully posted to KPM:\n"+question, "")
		if err := s.esr.AddComment(esrID, comment); err != nil {
			log.Errorf("Failed to add the question audit comment to %s: %v", esrID, err)
		}
	}
	return result, nil
}

// updateKpmStatus mirrors the Jira lifecycle status back to KPM. Unknown
// statuses are logged and skipped, the cycle continues.
func (s *KpmSyncService) updateKpmStatus(esrTicket *models.EsrTicket) (postResult, error) {
	log := logger.GetLogger()
	kpmID, esrID := esrTicket.KpmID(), esrTicket.Key()

	status, ok := models.StatusForJiraName(esrTicket.Status())
	if !ok {
		log.Errorf("No mapped KPM status for Jira status %q of %s", esrTicket.Status(), esrID)
		return postSkipped, nil
	}
	log.Infof("Will update KPM %s status to %q [%s]", kpmID, status.Comment, status.Code)

	reason := ""
	if status.NeedsResponse {
		if cause := esrTicket.CauseOfReject(); cause != "" {
			reason = fmt.Sprintf(" [%s]", cause)
		}
		if question := esrTicket.QuestionToOEM(); question != "" {
			reason += ":\n" + question
		}
	}
	return s.postKpmStatus(kpmID, esrID, status, reason)
}

// statusChanged checks whether the ticket has a status change on record,
// optionally narrowed to or away from the given current statuses.
func (s *KpmSyncService) statusChanged(esrID string, in, notIn []string) (bool, error) {
	jql := fmt.Sprintf("%s AND issuekey = %s AND status changed", s.esr.BaseJQL(), esrID)
	if len(in) > 0 {
		jql += " AND status in (" + quotedList(in) + ")"
	}
	if len(notIn) > 0 {
		jql += " AND status not in (" + quotedList(notIn) + ")"
	}
	tickets, err := s.esr.QueryAll(jql)
	if err != nil {
		return false, err
	}
	return len(tickets) > 0, nil
}

func quotedList(values []string) string {
	quoted := make([]string, 0, len(values))
	for _, value := range values {
		quoted = append(quoted, fmt.Sprintf("%q", value))
	}
	return strings.Join(quoted, ", ")
}

// promoteAnsweredTicket moves an "Info Missing" ticket to "In Analysis"
// once a fresh answer from the OEM arrived. The auto comment doubles as
// the guard against promoting twice for the same answer.
func (s *KpmSyncService) promoteAnsweredTicket(esrTicket *models.EsrTicket) error {
	log := logger.GetLogger()
	kpmID, esrID := esrTicket.KpmID(), esrTicket.Key()
	const toStatus = "In Analysis"

	lastAnswer := esrTicket.LastAnswerFromOEM()
	lastAnswerDate := strings.SplitN(lastAnswer, ":", 2)[0]
	recent := false
	for _, stamp := range LastDaysStamps(s.cfg.AnswerLookbackDays, time.Now()) {
		if strings.Contains(lastAnswerDate, stamp) {
			recent = true
			break
		}
	}
	if !recent {
		log.Warnf("Not changing %s to %s: no Answer from OEM within the last %d days",
			esrID, toStatus, s.cfg.AnswerLookbackDays)
		return nil
	}
	log.Infof("Answer from OEM on %s not older than %d days", esrID, s.cfg.AnswerLookbackDays)

	comment := fmt.Sprintf(
		"✅ Succesfully changed status to *%s* -> *Answer from OEM* received:\n\n%s",
		toStatus, lastAnswer)
	merged, err := s.esr.AllCommentsMerged(esrID)
	if err != nil {
		return err
	}
	if strings.Contains(merged, comment) {
		log.Warnf("Not changing %s to %s: auto comment already present", esrID, toStatus)
		return nil
	}

	if _, err := s.esr.UpdateStatus(esrID, toStatus, comment); err != nil {
		return err
	}
	if err := s.esr.AddComment(esrID, comment); err != nil {
		return err
	}
	log.Infof("Changed status of %s to %s (KPM %s)", esrID, toStatus, kpmID)
	return nil
}

// syncStatusAndQuestion pushes the Jira side changes back to KPM: status
// updates, reject/question context and pending questions to the OEM.
func (s *KpmSyncService) syncStatusAndQuestion(esrTicket *models.EsrTicket) error {
	log := logger.GetLogger()
	esrID := esrTicket.Key()

	if esrTicket.Status() == "Info Missing" {
		if err := s.promoteAnsweredTicket(esrTicket); err != nil {
			return err
		}
	}

	changedToQuestion, err := s.statusChanged(esrID, questionStatuses, nil)
	if err != nil {
		return err
	}
	if changedToQuestion {
		if esrTicket.QuestionToOEM() != "" {
			log.Infof("Status of %s recently changed to %q with a pending Question to OEM, posting to KPM",
				esrID, esrTicket.Status())
			if _, err := s.postQuestionToOEM(esrTicket); err != nil {
				return err
			}
			_, err := s.updateKpmStatus(esrTicket)
			return err
		}
		log.Warnf("Status of %s recently changed to %q but the Question to OEM is empty, not posting to KPM",
			esrID, esrTicket.Status())
	} else {
		changedElsewhere, err := s.statusChanged(esrID, nil, questionStatuses)
		if err != nil {
			return err
		}
		if changedElsewhere {
			_, err := s.updateKpmStatus(esrTicket)
			return err
		}
	}

	if !contains(questionStatuses, esrTicket.Status()) {
		_, err := s.postQuestionToOEM(esrTicket)
		return err
	}
	return nil
}

// substepCount counts the stacked process step entries inside one text
// custom field.
func substepCount(text string) int {
	if text == "" {
		return 0
	}
	return len(strings.Split(strings.Trim(text, "\n"), models.AnswerSeparator))
}

func filterSteps(steps []clients.ProcessStepItem, stepTypeDesc string) []clients.ProcessStepItem {
	var filtered []clients.ProcessStepItem
	for _, step := range steps {
		if step.StepTypeDesc == stepTypeDesc {
			filtered = append(filtered, step)
		}
	}
	return filtered
}

// collectFeedbackToOEM rebuilds the "Feedback to OEM" field from the
// supplier response steps. Matching entry counts or a matching first
// entry mean nothing changed; the rebuilt text never exceeds the Jira
// field limit, older entries get cut first.
func (s *KpmSyncService) collectFeedbackToOEM(esrTicket *models.EsrTicket, steps []clients.ProcessStepItem) (string, bool, error) {
	log := logger.GetLogger()
	kpmID := esrTicket.KpmID()
	log.Infof("Checking [Feedback to OEM] for KPM %s", kpmID)

	items := filterSteps(steps, clients.StepSupplierResponse)
	current := esrTicket.FeedbackToOEM()
	if substepCount(current) == len(items) {
		log.Infof("Jira [Feedback to OEM] of %s same as in KPM (same number of steps)", esrTicket.Key())
		return "", false, nil
	}

	var all strings.Builder
	kept := 0
	for i, item := range items {
		step, err := s.kpm.Step(item.ProblemNumber, item.StepID)
		if err != nil {
			log.Errorf("Failed to get process step %s of KPM %s: %v", item.StepID, kpmID, err)
			continue
		}
		entry := step.ForJiraUI()
		if i == 0 && current != "" {
			if strings.SplitN(current, "\n\n", 2)[0] == strings.SplitN(entry, "\n\n", 2)[0] {
				log.Infof("Jira [Feedback to OEM] of %s same as in KPM (same first step)", esrTicket.Key())
				return "", false, nil
			}
		}
		if all.Len()+len(entry) >= jiraTextFieldLimit {
			log.Warnf("Feedback to OEM of KPM %s too long, limiting to %d out of %d steps",
				kpmID, kept, len(items))
			break
		}
		all.WriteString(entry)
		kept++
	}
	return all.String(), true, nil
}

// collectFeedbackFromOEM rebuilds the "Feedback from OEM" field from the
// closed analysis steps.
func (s *KpmSyncService) collectFeedbackFromOEM(esrTicket *models.EsrTicket, steps []clients.ProcessStepItem) (string, bool, error) {
	log := logger.GetLogger()
	kpmID := esrTicket.KpmID()

	items := filterSteps(steps, clients.StepAnalysisDone)
	if substepCount(esrTicket.FeedbackFromOEM()) == len(items) {
		log.Infof("Jira [Feedback from OEM] of %s same as in KPM", esrTicket.Key())
		return "", false, nil
	}

	var all strings.Builder
	for _, item := range items {
		step, err := s.kpm.Step(item.ProblemNumber, item.StepID)
		if err != nil {
			log.Errorf("Failed to get process step %s of KPM %s: %v", item.StepID, kpmID, err)
			continue
		}
		all.WriteString(step.ForJiraUI())
	}
	return all.String(), true, nil
}

// collectAnswersFromOEM rebuilds the "Answer from OEM" field from the
// answer steps, oldest first so the newest answer ends up last.
func (s *KpmSyncService) collectAnswersFromOEM(esrTicket *models.EsrTicket, steps []clients.ProcessStepItem) (string, bool, error) {
	log := logger.GetLogger()
	kpmID := esrTicket.KpmID()

	items := filterSteps(steps, clients.StepAnswer)
	if substepCount(esrTicket.AnswerFromOEM()) == len(items) {
		log.Infof("Jira [Answer from OEM] of %s same as in KPM", esrTicket.Key())
		return "", false, nil
	}

	var all strings.Builder
	for i := len(items) - 1; i >= 0; i-- {
		step, err := s.kpm.Step(items[i].ProblemNumber, items[i].StepID)
		if err != nil {
			log.Errorf("Failed to get process step %s of KPM %s: %v", items[i].StepID, kpmID, err)
			continue
		}
		all.WriteString(step.ForJiraUI())
	}
	return all.String(), true, nil
}

// syncExtrasKpmToJira refreshes the process step custom fields of the
// ESR ticket from the KPM step list.
func (s *KpmSyncService) syncExtrasKpmToJira(esrTicket *models.EsrTicket) error {
	log := logger.GetLogger()
	kpmID := esrTicket.KpmID()

	steps, err := s.kpm.ProcessSteps(kpmID)
	if err != nil {
		return err
	}
	if len(steps) == 0 {
		log.Warnf("No process steps found for KPM %s, skipping the custom fields sync", kpmID)
		return nil
	}

	fields := models.NewEsrFieldMap()
	update := make(map[string]any)

	if text, changed, err := s.collectFeedbackToOEM(esrTicket, steps); err != nil {
		return err
	} else if changed {
		update[fields.Extra(models.FieldFeedbackToOEM)] = text
	}
	if text, changed, err := s.collectFeedbackFromOEM(esrTicket, steps); err != nil {
		return err
	} else if changed {
		update[fields.Extra(models.FieldFeedbackFromOEM)] = text
	}
	if text, changed, err := s.collectAnswersFromOEM(esrTicket, steps); err != nil {
		return err
	} else if changed {
		update[fields.Extra(models.FieldAnswerFromOEM)] = text
	}

	if len(update) == 0 {
		return nil
	}
	return s.esr.Update(esrTicket.Key(), update)
}

// syncAttachments uploads the KPM documents still missing on the Jira
// side. Documents are matched by full name, KPM reports no sizes worth
// trusting across systems.
func (s *KpmSyncService) syncAttachments(esrTicket *models.EsrTicket) error {
	log := logger.GetLogger()
	kpmID, esrID := esrTicket.KpmID(), esrTicket.Key()

	docs, err := s.kpm.Documents(kpmID)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		log.Debugf("No documents found for KPM %s", kpmID)
		return nil
	}

	existing := make(map[string]bool)
	for _, attachment := range esrTicket.Attachments() {
		existing[strings.TrimSpace(attachment.Filename)] = true
	}

	for _, doc := range docs {
		name := strings.TrimSpace(doc.FullName())
		if existing[name] {
			log.Infof("Attachment %s already present on %s, ignoring it", name, esrID)
			continue
		}
		data, err := s.kpm.Document(kpmID, doc)
		if err != nil {
			log.Errorf("KPM document download failed: %s [size: %d] of KPM %s: %v",
				name, doc.Size, kpmID, err)
			continue
		}
		if err := s.esr.AddAttachment(esrID, name, data); err != nil {
			log.Errorf("Jira attachment post failed: %s [size: %d] to %s: %v",
				name, doc.Size, esrID, err)
			continue
		}
		log.Debugf("Jira attachment post successful: %s [size: %d] to %s", name, doc.Size, esrID)
	}
	return nil
}

// handleNoAccess posts a one-off marker comment on the Jira ticket when
// the sync user lost read access to the KPM record. Returns true when
// access is missing, the ticket is then skipped.
func (s *KpmSyncService) handleNoAccess(kpmID string) (bool, error) {
	log := logger.GetLogger()

	noAccess, err := s.kpm.HasNoAccess(kpmID)
	if err != nil {
		return false, err
	}
	if !noAccess {
		return false, nil
	}
	log.Warnf("User has no access to KPM %s, will post a Jira comment if missing", kpmID)

	esrTicket, err := s.existingByKpmID(kpmID)
	if err != nil {
		return true, err
	}
	if esrTicket == nil {
		log.Warnf("No Jira issue found for KPM %s, likely never assigned to us", kpmID)
		return true, nil
	}
	comments, err := s.esr.Comments(esrTicket.Key())
	if err != nil {
		return true, err
	}
	for _, comment := range comments {
		if strings.Contains(comment.Body, noKpmAccessComment) {
			log.Infof("Jira %q comment already present on %s, nothing to do",
				noKpmAccessComment, esrTicket.Key())
			return true, nil
		}
	}
	return true, s.esr.AddComment(esrTicket.Key(), BuildAutoComment(noKpmAccessComment, ""))
}

// SyncOne runs the full two-way alignment for one KPM problem.
func (s *KpmSyncService) SyncOne(kpmID string) (*models.EsrTicket, error) {
	noAccess, err := s.handleNoAccess(kpmID)
	if err != nil {
		return nil, err
	}
	if noAccess {
		return nil, &SyncConditionError{ID: kpmID, Reason: "no access in KPM"}
	}

	esrTicket, err := s.addIssue(kpmID)
	if err != nil {
		return nil, err
	}
	if err := s.syncExtrasKpmToJira(esrTicket); err != nil {
		return nil, err
	}
	if err := s.syncStatusAndQuestion(esrTicket); err != nil {
		return nil, err
	}
	if err := s.syncAttachments(esrTicket); err != nil {
		return nil, err
	}
	return esrTicket, nil
}

func isNumeric(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Sync runs one full KPM cycle: everything KPM reports as changed since
// the window start, plus every Jira ticket with a recent status change,
// update or pending question. One broken ticket never stops the batch.
func (s *KpmSyncService) Sync(since string) (*models.SyncReport, error) {
	log := logger.GetLogger()
	report := models.NewSyncReport("kpm2jira")

	if err := s.esr.Check(); err != nil {
		return nil, &ConnectionError{System: "ESR Jira", Err: err}
	}
	if since == "" {
		since = clients.SinceTimestamp(time.Now(), s.cfg.WindowHours, s.cfg.MondayWindowHours)
	}

	refs, err := s.kpm.ChangedSince(since)
	if err != nil {
		return nil, fmt.Errorf("failed to get KPM issues since %s: %w", since, err)
	}

	// oldest first, so the backlog drains in arrival order
	seen := make(map[string]bool)
	var kpmIDs []string
	for i := len(refs) - 1; i >= 0; i-- {
		if number := refs[i].Number; number != "" && !seen[number] {
			seen[number] = true
			kpmIDs = append(kpmIDs, number)
		}
	}
	log.Infof("Found %d KPM issues changed since %s", len(kpmIDs), since)

	hours := s.cfg.ChangeWindowHours
	changed, err := s.esr.TicketsWithChangedStatus(hours)
	if err != nil {
		return nil, err
	}
	withQuestion, err := s.esr.TicketsWithFieldNotEmpty("Question to OEM", hours)
	if err != nil {
		return nil, err
	}
	updated, err := s.esr.TicketsUpdated(hours)
	if err != nil {
		return nil, err
	}
	jiraSide := 0
	for _, t := range append(append(changed, withQuestion...), updated...) {
		kpmID := asEsr(t).KpmID()
		if isNumeric(kpmID) && !seen[kpmID] {
			seen[kpmID] = true
			kpmIDs = append(kpmIDs, kpmID)
			jiraSide++
		}
	}
	log.Infof("Found %d Jira issues with status, question or update changes in the last %d hours",
		jiraSide, hours)

	report.TotalFound = len(kpmIDs)
	log.Infof("Will sync %d tickets KPM to Jira (and back)", len(kpmIDs))

	for _, kpmID := range kpmIDs {
		if s.cfg.TicketDelay > 0 {
			time.Sleep(s.cfg.TicketDelay)
		}
		log.Infof("#### Starting to sync KPM %s ####", kpmID)
		esrTicket, err := s.SyncOne(kpmID)
		if err != nil {
			log.Errorf("Failed to sync KPM %s: %v", kpmID, err)
			report.RecordFailed(kpmID, err)
			continue
		}
		report.RecordSynced(kpmID, esrTicket.UIURL())
		log.Infof("#### Sync done for %s | KPM %s ####", esrTicket.Key(), kpmID)
	}

	for _, kpmID := range kpmIDs {
		if _, ok := report.Synced[kpmID]; ok {
			continue
		}
		if _, ok := report.Failed[kpmID]; ok {
			continue
		}
		report.RecordNotProcessed(kpmID)
	}
	report.Finalize()

	if s.reports != nil {
		s.reports.SaveAndPost(report, s.cfg.ReportTicket)
	}
	return report, nil
}
