package dialog

import (
	"fmt"
	"strings"

	"github.com/smuassist/learnmate/course"
	"github.com/smuassist/learnmate/nlp/entity"
)

// Flow prompts and retry strings.
const (
	promptCourseInfoCode = "Which course would you like information about? Please provide the course code (e.g., IS621)."
	promptAssignmentCode = "Which course's assignments are you interested in? Please provide the course code (e.g., IS621)."
	promptMaterialCode   = "Which course's learning materials are you interested in? Please provide the course code (e.g., IS621)."
	retryInvalidCode     = "I couldn't identify a course code. Please provide a valid course code like IS621."
	gradesDeflection     = "To check your grades, please log into the SMU student portal. I don't have access to your personal grade information."
)

// flowEngine runs the slot-filling state machines. Each flow is keyed by the
// active step: step 0 is the first turn, later steps collect missing slots.
type flowEngine struct {
	contexts *ContextManager
	entities *entity.Extractor
	catalog  *course.Catalog
}

func newFlowEngine(contexts *ContextManager, entities *entity.Extractor, catalog *course.Catalog) *flowEngine {
	return &flowEngine{contexts: contexts, entities: entities, catalog: catalog}
}

// run dispatches to the flow's handler. The set of flows is closed, so an
// unhandled value means a programming error upstream; it falls through to the
// grades-style deflection rather than crashing the turn.
func (e *flowEngine) run(flow Flow, userID, message string, uc UserContext) string {
	switch flow {
	case FlowCourseInfo:
		return e.courseInfo(userID, message, uc)
	case FlowAssignment:
		return e.assignment(userID, message, uc)
	case FlowLearningMaterial:
		return e.learningMaterial(userID, message, uc)
	case FlowGrades:
		return e.grades()
	default:
		return e.grades()
	}
}

// courseCode pulls the first extracted course code out of an entity bag and
// prefixes it with "IS" to form the catalog key. All courses belong to the IS
// department; that assumption is a domain constraint, not something to
// generalize here.
func courseCode(entities map[string][]string) (string, bool) {
	codes := entities[entity.TypeCourseCode]
	if len(codes) == 0 {
		return "", false
	}
	return "IS" + codes[0], true
}

func (e *flowEngine) courseInfo(userID, message string, uc UserContext) string {
	if uc.ActiveStep == 0 {
		if code, ok := courseCode(uc.LastEntities); ok {
			e.contexts.UpdateExisting(userID, func(c *UserContext) { c.clearFlow() })
			return e.catalog.Info(code)
		}
		e.contexts.UpdateExisting(userID, func(c *UserContext) {
			c.ActiveFlow = FlowCourseInfo
			c.ActiveStep = 1
		})
		return promptCourseInfoCode
	}

	// Step 1: retry until the student supplies a recognizable code.
	if code, ok := courseCode(e.entities.Extract(message)); ok {
		e.contexts.UpdateExisting(userID, func(c *UserContext) { c.clearFlow() })
		return e.catalog.Info(code)
	}
	return retryInvalidCode
}

func (e *flowEngine) assignment(userID, message string, uc UserContext) string {
	askType := func(code string) string {
		return fmt.Sprintf("For %s, do you want to know about assignments, projects, or exams?", code)
	}

	switch uc.ActiveStep {
	case 0:
		if code, ok := courseCode(uc.LastEntities); ok {
			e.contexts.UpdateExisting(userID, func(c *UserContext) {
				c.CurrentCourse = code
				c.ActiveFlow = FlowAssignment
				c.ActiveStep = 2
			})
			return askType(code)
		}
		e.contexts.UpdateExisting(userID, func(c *UserContext) {
			c.ActiveFlow = FlowAssignment
			c.ActiveStep = 1
		})
		return promptAssignmentCode

	case 1:
		if code, ok := courseCode(e.entities.Extract(message)); ok {
			e.contexts.UpdateExisting(userID, func(c *UserContext) {
				c.CurrentCourse = code
				c.ActiveStep = 2
			})
			return askType(code)
		}
		return retryInvalidCode

	default:
		// Step 2: pick the assessment category by substring. The flow is
		// cleared whichever branch answers.
		reply := strings.ToLower(message)
		code := uc.CurrentCourse
		if code == "" {
			code = "unknown"
		}
		e.contexts.UpdateExisting(userID, func(c *UserContext) { c.clearFlow() })

		switch {
		case strings.Contains(reply, "assignment"):
			return fmt.Sprintf("For %s, there are 2 assignments worth 20%% of your final grade. The first assignment is due on March 15th, and the second is due on April 10th.", code)
		case strings.Contains(reply, "project"):
			return fmt.Sprintf("For %s, there is a group project worth 35%% of your final grade. The project proposal is due on March 1st, and the final submission is due on April 20th.", code)
		case strings.Contains(reply, "exam"):
			return fmt.Sprintf("For %s, there is a final exam worth 45%% of your final grade. The exam is scheduled for May 5th.", code)
		default:
			return fmt.Sprintf("For %s, there are assignments (20%%), a group project (35%%), and a final exam (45%%). Which would you like to know more about?", code)
		}
	}
}

func (e *flowEngine) learningMaterial(userID, message string, uc UserContext) string {
	answer := func(code string) string {
		return fmt.Sprintf("For %s (%s), you can find lecture slides, reading materials, and tutorial questions on the SMU eLearning portal. Would you like me to recommend additional resources for this course?", code, e.catalog.Name(code))
	}

	if uc.ActiveStep == 0 {
		if code, ok := courseCode(uc.LastEntities); ok {
			e.contexts.UpdateExisting(userID, func(c *UserContext) { c.clearFlow() })
			return answer(code)
		}
		e.contexts.UpdateExisting(userID, func(c *UserContext) {
			c.ActiveFlow = FlowLearningMaterial
			c.ActiveStep = 1
		})
		return promptMaterialCode
	}

	if code, ok := courseCode(e.entities.Extract(message)); ok {
		e.contexts.UpdateExisting(userID, func(c *UserContext) { c.clearFlow() })
		return answer(code)
	}
	return retryInvalidCode
}

// grades is a stateless passthrough: always the same deflection.
func (e *flowEngine) grades() string {
	return gradesDeflection
}
