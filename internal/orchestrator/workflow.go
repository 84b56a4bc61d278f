// ABOUTME: The planning workflow itself: stage execution and the approval loop
// ABOUTME: Runs entirely on the session driver goroutine, one call in flight

package orchestrator

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wuzhiguocarter/ag-ui-a2a-demo/internal/a2a"
	"github.com/wuzhiguocarter/ag-ui-a2a-demo/internal/agui"
	"github.com/wuzhiguocarter/ag-ui-a2a-demo/internal/approval"
	"github.com/wuzhiguocarter/ag-ui-a2a-demo/internal/classify"
)

// runWorkflow executes the planning stages in order once gathering completes.
// Each stage issues exactly one agent call and records its result before the
// next stage begins; any stage failure absorbs the session into Failed.
func (c *Controller) runWorkflow(s *Session) {
	p := s.Params()
	base := map[string]any{
		"destination": p.Destination,
		"days":        p.Days,
	}

	stages := []struct {
		stage Stage
		agent string
		task  string
	}{
		{StageItinerary, c.agents.Itinerary,
			fmt.Sprintf("Build a %d-day itinerary for %s", p.Days, p.Destination)},
		{StageWeather, c.agents.Weather,
			fmt.Sprintf("Forecast travel weather for %s over %d days", p.Destination, p.Days)},
		{StageMealPlanning, c.agents.Restaurant,
			fmt.Sprintf("Recommend meals for %d days in %s", p.Days, p.Destination)},
	}

	for _, st := range stages {
		c.enterStage(s, st.stage)
		if _, err := c.callAgent(s, st.agent, st.task, base); err != nil {
			c.fail(s, err)
			return
		}
	}

	c.enterStage(s, StageBudgeting)
	budget, err := c.callAgent(s, c.agents.Budget, budgetTask(p, 0), budgetParams(p, 0))
	if err != nil {
		c.fail(s, err)
		return
	}

	// Approval loop: every budget revision gets a fresh request id and its
	// own single-flight call.
	for {
		c.enterStage(s, StageApprovalGate)

		req := c.gate.Create(s.ID, rawResult(budget.Value))
		if c.metrics != nil {
			c.metrics.RecordApprovalRequested()
		}
		c.emit(s, agui.Frame{
			Kind: agui.KindApprovalRequest,
			Role: agui.RoleAssistant,
			ApprovalRequest: &agui.ApprovalRequest{
				ID:      req.ID,
				Payload: req.Payload,
			},
		})

		status, err := c.gate.Wait(s.ctx, req.ID)
		if err != nil {
			// Session torn down while suspended; no transition for the dead
			// session.
			return
		}

		approved := status == approval.StatusApproved
		if c.metrics != nil {
			c.metrics.RecordApprovalDecision(string(status))
		}
		c.emit(s, agui.Frame{
			Kind: agui.KindApprovalDecision,
			Role: agui.RoleUser,
			ApprovalDecision: &agui.ApprovalDecision{
				RequestID: req.ID,
				Approved:  approved,
			},
		})

		if approved {
			break
		}

		rev := s.bumpRevision()
		c.enterStage(s, StageBudgeting)
		budget, err = c.callAgent(s, c.agents.Budget, budgetTask(p, rev), budgetParams(p, rev))
		if err != nil {
			c.fail(s, err)
			return
		}
	}

	c.enterStage(s, StageSummary)
	c.emitSummary(s)
	c.enterStage(s, StageDone)
	c.emit(s, agui.Frame{
		Kind:    agui.KindMessage,
		Role:    agui.RoleAssistant,
		Content: fmt.Sprintf("Your %d-day trip to %s is fully planned. Safe travels!", p.Days, p.Destination),
	})
}

func budgetParams(p TripParams, revision int) map[string]any {
	params := map[string]any{
		"destination": p.Destination,
		"days":        p.Days,
		"partySize":   p.PartySize,
		"budgetTier":  p.BudgetTier,
	}
	if revision > 0 {
		params["revision"] = revision
	}
	return params
}

func budgetTask(p TripParams, revision int) string {
	task := fmt.Sprintf("Estimate a %s-tier budget for %d people, %d days in %s",
		p.BudgetTier, p.PartySize, p.Days, p.Destination)
	if revision > 0 {
		task = fmt.Sprintf("%s (revision %d after rejection)", task, revision)
	}
	return task
}

// callAgent performs one single-flight gateway call for the session, emitting
// the tool_call and tool_result frames and storing the classified payload.
// The frame pair shares one call id so the UI can correlate them.
func (c *Controller) callAgent(s *Session, agent, task string, params map[string]any) (classify.Payload, error) {
	callID := uuid.New().String()
	c.emit(s, agui.Frame{
		Kind: agui.KindToolCall,
		Role: agui.RoleAssistant,
		ToolCall: &agui.ToolCall{
			ID:         callID,
			AgentName:  agent,
			Task:       task,
			Parameters: params,
		},
	})

	start := time.Now()
	result, err := c.invoker.Invoke(s.ctx, s.ID, agent, task, params)
	if c.metrics != nil {
		c.metrics.RecordAgentCall(agent, outcomeLabel(err), time.Since(start).Seconds())
	}

	if err != nil {
		errText := err.Error()
		if result != nil && result.Err != "" {
			errText = result.Err
		}
		c.emit(s, agui.Frame{
			Kind: agui.KindToolResult,
			Role: agui.RoleSystem,
			ToolResult: &agui.ToolResult{
				RequestID: callID,
				Success:   false,
				Error:     errText,
			},
		})
		return classify.Payload{}, fmt.Errorf("%s: %w", agent, err)
	}

	payload := classify.Classify(result.RequestID, result.Raw)
	s.storeResult(payload)

	c.emit(s, agui.Frame{
		Kind: agui.KindToolResult,
		Role: agui.RoleSystem,
		ToolResult: &agui.ToolResult{
			RequestID: callID,
			Success:   true,
			Schema:    string(payload.Tag),
			Data:      result.Raw,
		},
	})
	return payload, nil
}

// outcomeLabel maps an invoke error to its metrics label.
func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, a2a.ErrAgentTimeout):
		return "timeout"
	case errors.Is(err, a2a.ErrAgentRejected):
		return "rejected"
	default:
		return "error"
	}
}
