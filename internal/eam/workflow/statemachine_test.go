package workflow

import "testing"

func TestAdvanceHappyPath(t *testing.T) {
	cases := []struct {
		phase Phase
		steps []struct{ state, role, next string }
	}{
		{
			phase: PhaseRequest,
			steps: []struct{ state, role, next string }{
				{"WAITING_TECH", "technician", "WAITING_MANAGER"},
				{"WAITING_MANAGER", "manager", "WAITING_DIRECTOR"},
				{"WAITING_DIRECTOR", "director", "COMPLETED"},
			},
		},
		{
			phase: PhaseInspection,
			steps: []struct{ state, role, next string }{
				{"PENDING", "team_lead", "LEAD_APPROVED"},
				{"LEAD_APPROVED", "manager", "MANAGER_APPROVED"},
				{"MANAGER_APPROVED", "director", "ADMIN_APPROVED"},
			},
		},
		{
			phase: PhaseAcceptance,
			steps: []struct{ state, role, next string }{
				{"PENDING", "team_lead", "LEAD_APPROVED"},
				{"LEAD_APPROVED", "manager", "MANAGER_APPROVED"},
				{"MANAGER_APPROVED", "director", "ACCEPTED"},
			},
		},
	}

	for _, tc := range cases {
		for _, s := range tc.steps {
			step, err := Advance(tc.phase, s.state, s.role)
			if err != nil {
				t.Fatalf("Advance(%v, %s, %s) failed: %v", tc.phase, s.state, s.role, err)
			}
			if step.To != s.next {
				t.Errorf("Advance(%v, %s, %s) = %s, want %s", tc.phase, s.state, s.role, step.To, s.next)
			}
		}
	}
}

func TestAdvanceWrongRole(t *testing.T) {
	if _, err := Advance(PhaseRequest, "WAITING_TECH", "manager"); err == nil {
		t.Error("expected error when manager approves the technician node")
	}
	if _, err := Advance(PhaseInspection, "LEAD_APPROVED", "team_lead"); err == nil {
		t.Error("expected error when team_lead re-approves at the manager node")
	}
	if _, err := Advance(PhaseAcceptance, "MANAGER_APPROVED", "manager"); err == nil {
		t.Error("expected error when manager approves the director node")
	}
}

func TestAdvanceFromTerminalState(t *testing.T) {
	if _, err := Advance(PhaseRequest, "COMPLETED", "director"); err == nil {
		t.Error("expected error when approving a completed phase")
	}
	if _, err := Advance(PhaseInspection, "REJECTED", "team_lead"); err == nil {
		t.Error("expected error when approving a rejected phase")
	}
	if _, err := Advance(PhaseAcceptance, "ACCEPTED", "director"); err == nil {
		t.Error("expected error when approving an accepted phase")
	}
}

func TestRejectFrom(t *testing.T) {
	if _, err := RejectFrom(PhaseInspection, "MANAGER_APPROVED", "director"); err != nil {
		t.Errorf("director should be able to reject at their node: %v", err)
	}
	if _, err := RejectFrom(PhaseInspection, "MANAGER_APPROVED", "team_lead"); err == nil {
		t.Error("expected error when team_lead rejects at the director node")
	}
	if _, err := RejectFrom(PhaseRequest, "COMPLETED", "director"); err == nil {
		t.Error("expected error when rejecting a completed phase")
	}
}

func TestFinalStep(t *testing.T) {
	step, err := Advance(PhaseInspection, "MANAGER_APPROVED", "director")
	if err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if !FinalStep(PhaseInspection, step) {
		t.Error("director approval should be the final inspection step")
	}

	step, err = Advance(PhaseInspection, "PENDING", "team_lead")
	if err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if FinalStep(PhaseInspection, step) {
		t.Error("team_lead approval should not be final")
	}
}

func TestEditable(t *testing.T) {
	cases := []struct {
		phase Phase
		state string
		want  bool
	}{
		{PhaseInspection, "PENDING", true},
		{PhaseInspection, "REJECTED", true},
		{PhaseInspection, "LEAD_APPROVED", false},
		{PhaseInspection, "ADMIN_APPROVED", false},
		{PhaseAcceptance, "PENDING", true},
		{PhaseAcceptance, "MANAGER_APPROVED", false},
		{PhaseRequest, "WAITING_TECH", true},
		{PhaseRequest, "WAITING_MANAGER", false},
	}
	for _, tc := range cases {
		if got := Editable(tc.phase, tc.state); got != tc.want {
			t.Errorf("Editable(%v, %s) = %v, want %v", tc.phase, tc.state, got, tc.want)
		}
	}
}

func TestRequiredRole(t *testing.T) {
	if got := RequiredRole(PhaseRequest, "WAITING_MANAGER"); got != "manager" {
		t.Errorf("RequiredRole = %s, want manager", got)
	}
	if got := RequiredRole(PhaseAcceptance, "ACCEPTED"); got != "" {
		t.Errorf("RequiredRole on terminal state = %s, want empty", got)
	}
}

func TestParsePhase(t *testing.T) {
	for _, name := range []string{"request", "inspection", "acceptance"} {
		p, err := ParsePhase(name)
		if err != nil {
			t.Fatalf("ParsePhase(%s) failed: %v", name, err)
		}
		if p.String() != name {
			t.Errorf("round trip %s -> %s", name, p.String())
		}
	}
	if _, err := ParsePhase("bogus"); err == nil {
		t.Error("expected error for unknown phase")
	}
}

func TestTerminalAndInitialStates(t *testing.T) {
	if InitialState(PhaseRequest) != "WAITING_TECH" {
		t.Error("request phase should start at WAITING_TECH")
	}
	if TerminalState(PhaseAcceptance) != "ACCEPTED" {
		t.Error("acceptance phase should end at ACCEPTED")
	}
	if !IsTerminal(PhaseInspection, "REJECTED") {
		t.Error("REJECTED should be terminal")
	}
	if IsTerminal(PhaseInspection, "LEAD_APPROVED") {
		t.Error("LEAD_APPROVED should not be terminal")
	}
}
