package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"time"

	"github.com/rpggio/cairn/internal/domain/project"
	"github.com/rpggio/cairn/internal/domain/proof"
	"github.com/rpggio/cairn/internal/repository"
	"github.com/rpggio/cairn/internal/transport"
)

// Method names on the ledger node.
const (
	methodListProjects     = "cairn_listProjects"
	methodGetProof         = "cairn_getProof"
	methodIsProofValid     = "cairn_isProofValid"
	methodOwnerOf          = "cairn_ownerOf"
	methodUnitsOf          = "cairn_unitsOf"
	methodCertificateUnits = "cairn_certificateUnits"
	methodUserPoRCount     = "cairn_userPoRCount"
	methodRegisterProject  = "cairn_registerProject"
	methodRecordOutputs    = "cairn_recordOutputs"
	methodRecordProof      = "cairn_recordProof"
	methodDisputeProof     = "cairn_disputeProof"
	methodFundProject      = "cairn_fundProject"
	methodMintCertificate  = "cairn_mintCertificate"
	methodSetApproval      = "cairn_setApprovalForAll"
	methodApproveTransfer  = "cairn_approveFundingTransfer"
	methodSetImpact        = "cairn_setProjectImpact"
	methodReceipt          = "cairn_getTransactionReceipt"

	// claimStoredEvent is emitted by a mint; its claimID is the certificate
	// type and the first fraction token is claimID+1.
	claimStoredEvent = "ClaimStored"
)

// Options configures a Client.
type Options struct {
	CallTimeout         time.Duration
	ReceiptPollInterval time.Duration
	ReceiptTimeout      time.Duration
}

func (o Options) withDefaults() Options {
	if o.CallTimeout <= 0 {
		o.CallTimeout = 10 * time.Second
	}
	if o.ReceiptPollInterval <= 0 {
		o.ReceiptPollInterval = time.Second
	}
	if o.ReceiptTimeout <= 0 {
		o.ReceiptTimeout = 2 * time.Minute
	}
	return o
}

// Client implements Gateway over JSON-RPC.
type Client struct {
	rpc    *transport.Client
	opts   Options
	logger *slog.Logger
}

var _ Gateway = (*Client)(nil)

// NewClient creates a ledger client for the node at endpoint.
func NewClient(endpoint string, httpClient *http.Client, opts Options, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		rpc:    transport.NewClient(endpoint, httpClient),
		opts:   opts.withDefaults(),
		logger: logger,
	}
}

func (c *Client) call(ctx context.Context, method string, params, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.opts.CallTimeout)
	defer cancel()
	if err := c.rpc.Call(ctx, method, params, out); err != nil {
		return classify(method, err)
	}
	return nil
}

// classify maps transport and JSON-RPC failures onto repository sentinels.
func classify(method string, err error) error {
	var rpcErr *transport.Error
	switch {
	case errors.As(err, &rpcErr):
		switch rpcErr.Code {
		case transport.ErrNotFoundCode:
			return fmt.Errorf("%s: %w: %s", method, repository.ErrNotFound, rpcErr.Message)
		case transport.ErrRejectedCode:
			return fmt.Errorf("%s: %w: %s", method, repository.ErrWriteRejected, rpcErr.Message)
		case transport.ErrInvalidParams:
			return fmt.Errorf("%s: %w: %s", method, repository.ErrInvalidInput, rpcErr.Message)
		default:
			return fmt.Errorf("%s: %w: %v", method, repository.ErrUnreachable, rpcErr)
		}
	case errors.Is(err, transport.ErrBadResponse):
		return fmt.Errorf("%w: %v", repository.ErrMalformed, err)
	default:
		return fmt.Errorf("%w: %v", repository.ErrUnreachable, err)
	}
}

// ListProjects returns up to limit summaries from offset, in registration
// order. An offset past the end yields an empty slice.
func (c *Client) ListProjects(ctx context.Context, offset, limit int) ([]project.Summary, error) {
	if offset < 0 || limit <= 0 {
		return nil, fmt.Errorf("%w: offset %d limit %d", repository.ErrInvalidInput, offset, limit)
	}
	var out []project.Summary
	if err := c.call(ctx, methodListProjects, map[string]int{"offset": offset, "limit": limit}, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []project.Summary{}
	}
	return out, nil
}

// GetProof reads the ledger half of a proof.
func (c *Client) GetProof(ctx context.Context, address string) (proof.LedgerProof, error) {
	var out proof.LedgerProof
	err := c.call(ctx, methodGetProof, map[string]string{"address": address}, &out)
	return out, err
}

// IsProofValid is a point-in-time read; false covers both invalid and not
// yet past the dispute window.
func (c *Client) IsProofValid(ctx context.Context, address string) (bool, error) {
	var out bool
	err := c.call(ctx, methodIsProofValid, map[string]string{"address": address}, &out)
	return out, err
}

// GetTokenOwner returns the holder of a fraction token.
func (c *Client) GetTokenOwner(ctx context.Context, tokenID string) (string, error) {
	var out string
	err := c.call(ctx, methodOwnerOf, map[string]string{"token_id": tokenID}, &out)
	return out, err
}

// GetTokenUnits returns the units held by a fraction token.
func (c *Client) GetTokenUnits(ctx context.Context, tokenID string) (int64, error) {
	var out int64
	err := c.call(ctx, methodUnitsOf, map[string]string{"token_id": tokenID}, &out)
	return out, err
}

// GetCertificateUnits returns the total units issued for a certificate type.
func (c *Client) GetCertificateUnits(ctx context.Context, certificateTypeID string) (int64, error) {
	var out int64
	err := c.call(ctx, methodCertificateUnits, map[string]string{"certificate_type_id": certificateTypeID}, &out)
	return out, err
}

// GetUserPoRCount returns how many proofs an account may still submit.
func (c *Client) GetUserPoRCount(ctx context.Context, address string) (int64, error) {
	var out int64
	err := c.call(ctx, methodUserPoRCount, map[string]string{"address": address}, &out)
	return out, err
}

// RegisterProject registers a project against a minted certificate.
func (c *Client) RegisterProject(ctx context.Context, from string, reg Registration) (Receipt, error) {
	return c.transact(ctx, methodRegisterProject, map[string]any{
		"from":            from,
		"project_address": reg.ProjectAddress,
		"token_id":        reg.TokenID,
		"unit_price":      reg.UnitPrice,
		"funding_goal":    reg.FundingGoal,
	})
}

// RecordOutputs attaches an outputs document to a project.
func (c *Client) RecordOutputs(ctx context.Context, from, projectID, outputsAddress string) (Receipt, error) {
	return c.transact(ctx, methodRecordOutputs, map[string]any{
		"from":            from,
		"project_id":      projectID,
		"outputs_address": outputsAddress,
	})
}

// RecordProof records a reproducibility claim.
func (c *Client) RecordProof(ctx context.Context, from, projectID, proofAddress string) (Receipt, error) {
	return c.transact(ctx, methodRecordProof, map[string]any{
		"from":          from,
		"project_id":    projectID,
		"proof_address": proofAddress,
	})
}

// DisputeProof flags a proof as disputed with supporting evidence.
func (c *Client) DisputeProof(ctx context.Context, from, proofAddress, disputeAddress string) (Receipt, error) {
	return c.transact(ctx, methodDisputeProof, map[string]any{
		"from":            from,
		"proof_address":   proofAddress,
		"dispute_address": disputeAddress,
	})
}

// FundProject transfers amount minor units to a project.
func (c *Client) FundProject(ctx context.Context, from, projectID string, amount int64) (Receipt, error) {
	return c.transact(ctx, methodFundProject, map[string]any{
		"from":       from,
		"project_id": projectID,
		"amount":     amount,
	})
}

// MintCertificate mints a certificate of units to from and reports the
// certificate type and its first fraction token.
func (c *Client) MintCertificate(ctx context.Context, from string, units int64, uri string) (MintResult, error) {
	receipt, err := c.transact(ctx, methodMintCertificate, map[string]any{
		"from":         from,
		"units":        units,
		"uri":          uri,
		"restrictions": 0,
	})
	if err != nil {
		return MintResult{}, err
	}

	for _, ev := range receipt.Events {
		if ev.Name != claimStoredEvent {
			continue
		}
		claimID, ok := new(big.Int).SetString(ev.Args["claimID"], 10)
		if !ok {
			return MintResult{}, fmt.Errorf("%w: claimID %q", repository.ErrMalformed, ev.Args["claimID"])
		}
		tokenID := new(big.Int).Add(claimID, big.NewInt(1))
		return MintResult{
			Receipt:           receipt,
			CertificateTypeID: claimID.String(),
			TokenID:           tokenID.String(),
		}, nil
	}
	return MintResult{}, fmt.Errorf("%w: mint %s emitted no %s event", repository.ErrMalformed, receipt.TxHash, claimStoredEvent)
}

// SetApprovalForAll lets operator move from's certificate tokens.
func (c *Client) SetApprovalForAll(ctx context.Context, from, operator string, approved bool) (Receipt, error) {
	return c.transact(ctx, methodSetApproval, map[string]any{
		"from":     from,
		"operator": operator,
		"approved": approved,
	})
}

// ApproveFundingTransfer allows the registry to pull amount from from.
func (c *Client) ApproveFundingTransfer(ctx context.Context, from string, amount int64) (Receipt, error) {
	return c.transact(ctx, methodApproveTransfer, map[string]any{
		"from":   from,
		"amount": amount,
	})
}

// SetProjectImpact sets a project's impact level.
func (c *Client) SetProjectImpact(ctx context.Context, from, projectID string, impact project.Impact) (Receipt, error) {
	if !impact.Valid() {
		return Receipt{}, fmt.Errorf("%w: impact %d", repository.ErrInvalidInput, int(impact))
	}
	return c.transact(ctx, methodSetImpact, map[string]any{
		"from":       from,
		"project_id": projectID,
		"impact":     int(impact),
	})
}

// transact submits a transaction and waits for its receipt.
func (c *Client) transact(ctx context.Context, method string, params map[string]any) (Receipt, error) {
	if from, _ := params["from"].(string); from == "" {
		return Receipt{}, fmt.Errorf("%w: %s requires a sender", repository.ErrInvalidInput, method)
	}

	var txHash string
	if err := c.call(ctx, method, params, &txHash); err != nil {
		return Receipt{}, err
	}
	if txHash == "" {
		return Receipt{}, fmt.Errorf("%w: %s returned no transaction hash", repository.ErrMalformed, method)
	}
	c.logger.Debug("transaction submitted", "method", method, "tx", txHash)

	receipt, err := c.waitReceipt(ctx, txHash)
	if err != nil {
		return Receipt{}, fmt.Errorf("%s: %w", method, err)
	}
	if !receipt.Succeeded() {
		return receipt, fmt.Errorf("%s: %w: transaction %s reverted", method, repository.ErrWriteRejected, txHash)
	}
	c.logger.Debug("transaction mined", "method", method, "tx", txHash, "block", receipt.BlockNumber)
	return receipt, nil
}

func (c *Client) waitReceipt(ctx context.Context, txHash string) (Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.ReceiptTimeout)
	defer cancel()

	ticker := time.NewTicker(c.opts.ReceiptPollInterval)
	defer ticker.Stop()

	for {
		var receipt Receipt
		err := c.call(ctx, methodReceipt, map[string]string{"tx_hash": txHash}, &receipt)
		switch {
		case err == nil && !receipt.Pending:
			if receipt.TxHash == "" {
				receipt.TxHash = txHash
			}
			return receipt, nil
		case err != nil && !errors.Is(err, repository.ErrNotFound):
			c.logger.Debug("receipt poll failed", "tx", txHash, "error", err)
		}

		select {
		case <-ctx.Done():
			return Receipt{}, fmt.Errorf("%w: transaction %s not confirmed: %v", repository.ErrWriteRejected, txHash, ctx.Err())
		case <-ticker.C:
		}
	}
}
