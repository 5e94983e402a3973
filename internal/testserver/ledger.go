package testserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/rpggio/cairn/internal/domain/project"
	"github.com/rpggio/cairn/internal/domain/proof"
	"github.com/rpggio/cairn/internal/ledger"
	"github.com/rpggio/cairn/internal/transport"
)

// Ledger is an in-memory ledger node speaking the cairn_* JSON-RPC methods.
// Writes mutate its state and are visible to subsequent reads.
type Ledger struct {
	Server *httptest.Server

	mu           sync.Mutex
	projects     []project.Summary
	proofs       map[string]proof.LedgerProof
	valid        map[string]bool
	owners       map[string]string
	units        map[string]int64
	certificates map[string]int64
	porCount     map[string]int64
	receipts     map[string]ledger.Receipt
	failures     map[string]int
	broken       map[string]bool
	reverts      map[string]bool
	pending      map[string]int
	calls        map[string]int
	nextClaim    int64
	nextTx       int
	block        uint64

	// PendingPolls is how many receipt polls report pending before a
	// transaction is mined.
	PendingPolls int
}

// NewLedger starts a fake ledger node that closes with the test.
func NewLedger(t *testing.T) *Ledger {
	t.Helper()
	l := &Ledger{
		proofs:       map[string]proof.LedgerProof{},
		valid:        map[string]bool{},
		owners:       map[string]string{},
		units:        map[string]int64{},
		certificates: map[string]int64{},
		porCount:     map[string]int64{},
		receipts:     map[string]ledger.Receipt{},
		failures:     map[string]int{},
		broken:       map[string]bool{},
		reverts:      map[string]bool{},
		pending:      map[string]int{},
		calls:        map[string]int{},
		nextClaim:    1 << 20,
	}
	l.Server = httptest.NewServer(http.HandlerFunc(l.serve))
	t.Cleanup(l.Server.Close)
	return l
}

// URL returns the JSON-RPC endpoint.
func (l *Ledger) URL() string { return l.Server.URL }

// AddProject appends a summary; its sequence is its position.
func (l *Ledger) AddProject(s project.Summary) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.Sequence = int64(len(l.projects))
	l.projects = append(l.projects, s)
}

// SetProof records a proof's ledger half.
func (l *Ledger) SetProof(address string, p proof.LedgerProof, valid bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.proofs[address] = p
	l.valid[address] = valid
}

// SetValid flips a proof's validity.
func (l *Ledger) SetValid(address string, valid bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.valid[address] = valid
}

// SetToken sets a fraction token's holder and units.
func (l *Ledger) SetToken(tokenID, owner string, units int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.owners[tokenID] = owner
	l.units[tokenID] = units
}

// SetCertificateUnits sets a certificate type's total supply.
func (l *Ledger) SetCertificateUnits(typeID string, units int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.certificates[typeID] = units
}

// SetPoRCount sets an account's remaining proof allowance.
func (l *Ledger) SetPoRCount(address string, n int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.porCount[address] = n
}

// Fail makes method answer with a JSON-RPC error code. Code 0 clears it.
func (l *Ledger) Fail(method string, code int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if code == 0 {
		delete(l.failures, method)
		return
	}
	l.failures[method] = code
}

// Break makes method answer with HTTP 502.
func (l *Ledger) Break(method string, broken bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.broken[method] = broken
}

// Revert makes transactions for method mine with status 0.
func (l *Ledger) Revert(method string, revert bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reverts[method] = revert
}

// Calls returns how many times method was invoked.
func (l *Ledger) Calls(method string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[method]
}

// Summary returns the stored summary for a project.
func (l *Ledger) Summary(projectID string) (project.Summary, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i := l.indexOf(projectID); i >= 0 {
		return l.projects[i], true
	}
	return project.Summary{}, false
}

type params struct {
	Offset            int    `json:"offset"`
	Limit             int    `json:"limit"`
	Address           string `json:"address"`
	TokenID           string `json:"token_id"`
	CertificateTypeID string `json:"certificate_type_id"`
	From              string `json:"from"`
	ProjectAddress    string `json:"project_address"`
	UnitPrice         int64  `json:"unit_price"`
	FundingGoal       int64  `json:"funding_goal"`
	ProjectID         string `json:"project_id"`
	OutputsAddress    string `json:"outputs_address"`
	ProofAddress      string `json:"proof_address"`
	DisputeAddress    string `json:"dispute_address"`
	Amount            int64  `json:"amount"`
	Units             int64  `json:"units"`
	URI               string `json:"uri"`
	Operator          string `json:"operator"`
	Approved          bool   `json:"approved"`
	Impact            int    `json:"impact"`
	TxHash            string `json:"tx_hash"`
}

func (l *Ledger) serve(w http.ResponseWriter, r *http.Request) {
	req, err := transport.ParseRequest(r.Body)
	if err != nil {
		transport.WriteError(w, nil, transport.ErrParseCode, err.Error(), nil)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls[req.Method]++

	if l.broken[req.Method] {
		w.WriteHeader(http.StatusBadGateway)
		return
	}
	if code, ok := l.failures[req.Method]; ok {
		transport.WriteError(w, req.ID, code, "injected failure", nil)
		return
	}

	var p params
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &p); err != nil {
			transport.WriteError(w, req.ID, transport.ErrInvalidParams, err.Error(), nil)
			return
		}
	}

	result, code, msg := l.dispatch(req.Method, p)
	if code != 0 {
		transport.WriteError(w, req.ID, code, msg, nil)
		return
	}
	transport.WriteResult(w, req.ID, result)
}

func (l *Ledger) dispatch(method string, p params) (any, int, string) {
	notFound := func(what string) (any, int, string) {
		return nil, transport.ErrNotFoundCode, what + " not found"
	}

	switch method {
	case "cairn_listProjects":
		if p.Offset >= len(l.projects) {
			return []project.Summary{}, 0, ""
		}
		end := min(p.Offset+p.Limit, len(l.projects))
		out := make([]project.Summary, end-p.Offset)
		copy(out, l.projects[p.Offset:end])
		return out, 0, ""
	case "cairn_getProof":
		pr, ok := l.proofs[p.Address]
		if !ok {
			return notFound("proof")
		}
		return pr, 0, ""
	case "cairn_isProofValid":
		return l.valid[p.Address], 0, ""
	case "cairn_ownerOf":
		owner, ok := l.owners[p.TokenID]
		if !ok {
			return notFound("token")
		}
		return owner, 0, ""
	case "cairn_unitsOf":
		units, ok := l.units[p.TokenID]
		if !ok {
			return notFound("token")
		}
		return units, 0, ""
	case "cairn_certificateUnits":
		units, ok := l.certificates[p.CertificateTypeID]
		if !ok {
			return notFound("certificate")
		}
		return units, 0, ""
	case "cairn_userPoRCount":
		return l.porCount[p.Address], 0, ""
	case "cairn_getTransactionReceipt":
		receipt, ok := l.receipts[p.TxHash]
		if !ok {
			return notFound("transaction")
		}
		if l.pending[p.TxHash] > 0 {
			l.pending[p.TxHash]--
			return ledger.Receipt{TxHash: p.TxHash, Pending: true}, 0, ""
		}
		return receipt, 0, ""
	}

	if p.From == "" {
		return nil, transport.ErrInvalidParams, "missing sender"
	}
	if l.reverts[method] {
		return l.mine(method, nil, false), 0, ""
	}

	switch method {
	case "cairn_mintCertificate":
		claim := l.nextClaim
		l.nextClaim += 1 << 10
		typeID := strconv.FormatInt(claim, 10)
		tokenID := strconv.FormatInt(claim+1, 10)
		l.certificates[typeID] = p.Units
		l.owners[tokenID] = p.From
		l.units[tokenID] = p.Units
		return l.mine(method, []ledger.Event{{
			Name: "ClaimStored",
			Args: map[string]string{"claimID": typeID, "uri": p.URI, "units": strconv.FormatInt(p.Units, 10)},
		}}, true), 0, ""
	case "cairn_setApprovalForAll", "cairn_approveFundingTransfer":
		return l.mine(method, nil, true), 0, ""
	case "cairn_registerProject":
		if l.indexOf(p.ProjectAddress) >= 0 {
			return nil, transport.ErrRejectedCode, "project already registered"
		}
		claim, err := strconv.ParseInt(p.TokenID, 10, 64)
		if err != nil {
			return nil, transport.ErrInvalidParams, "bad token id"
		}
		l.projects = append(l.projects, project.Summary{
			Sequence:          int64(len(l.projects)),
			Creator:           p.From,
			ProjectAddress:    p.ProjectAddress,
			CertificateTypeID: strconv.FormatInt(claim-1, 10),
			TokenIDs:          []string{p.TokenID},
			FundingGoal:       p.FundingGoal,
		})
		return l.mine(method, nil, true), 0, ""
	case "cairn_recordOutputs":
		i := l.indexOf(p.ProjectID)
		if i < 0 {
			return notFound("project")
		}
		l.projects[i].OutputsAddress = p.OutputsAddress
		return l.mine(method, nil, true), 0, ""
	case "cairn_recordProof":
		i := l.indexOf(p.ProjectID)
		if i < 0 {
			return notFound("project")
		}
		if _, exists := l.proofs[p.ProofAddress]; exists {
			return nil, transport.ErrRejectedCode, "proof already recorded"
		}
		l.projects[i].ProofAddresses = append(l.projects[i].ProofAddresses, p.ProofAddress)
		l.proofs[p.ProofAddress] = proof.LedgerProof{Recorder: p.From, RecordedAt: time.Now().Unix()}
		return l.mine(method, nil, true), 0, ""
	case "cairn_disputeProof":
		pr, ok := l.proofs[p.ProofAddress]
		if !ok {
			return notFound("proof")
		}
		pr.Dispute = true
		pr.DisputeAddress = p.DisputeAddress
		l.proofs[p.ProofAddress] = pr
		return l.mine(method, nil, true), 0, ""
	case "cairn_fundProject":
		i := l.indexOf(p.ProjectID)
		if i < 0 {
			return notFound("project")
		}
		if p.Amount <= 0 {
			return nil, transport.ErrRejectedCode, "amount must be positive"
		}
		l.projects[i].Funder = p.From
		return l.mine(method, nil, true), 0, ""
	case "cairn_setProjectImpact":
		i := l.indexOf(p.ProjectID)
		if i < 0 {
			return notFound("project")
		}
		l.projects[i].Impact = project.Impact(p.Impact)
		return l.mine(method, nil, true), 0, ""
	}
	return nil, transport.ErrMethodNotFound, "unknown method " + method
}

func (l *Ledger) mine(method string, events []ledger.Event, ok bool) string {
	l.nextTx++
	l.block++
	hash := fmt.Sprintf("0x%064x", l.nextTx)
	status := uint64(1)
	if !ok {
		status = 0
	}
	l.receipts[hash] = ledger.Receipt{TxHash: hash, BlockNumber: l.block, Status: status, Events: events}
	l.pending[hash] = l.PendingPolls
	return hash
}

func (l *Ledger) indexOf(projectID string) int {
	for i, s := range l.projects {
		if s.ProjectAddress == projectID {
			return i
		}
	}
	return -1
}
