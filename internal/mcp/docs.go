package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `cairn reconciles research projects from a public ledger and content-addressed storage.

Core concepts:
- Project: a registered research project. Its id is the content address of its metadata document.
- Proof of reproducibility: a document recorded against a project. State is derived from ledger flags:
  valid → Success, disputed → Disputed, otherwise Waiting.
- Impact certificate: a fractional token set. Ownership lists each token's holder and units.
- Reconciliation pass: rebuilds the whole published collection. Projects whose metadata cannot be
  resolved are left out; proofs and tokens that fail degrade individually.

Workflow:
1) start_session(role) once per conversation. It runs one reconciliation pass.
2) Browse with list_projects, get_project, get_reproducibility, my_projects.
3) Write with register_project, record_outputs, record_proof, dispute_proof, set_impact, fund_project.
   Documents must already be stored; pass their content addresses. Every successful write re-runs reconciliation.
4) Call reconcile when you need fresh ledger state without writing.

Docs:
- cairn://docs/index
- cairn://docs/states
- cairn://docs/documents
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "cairn://docs/index",
		Name:        "docs_index",
		Title:       "cairn docs index",
		Description: "Entry point: what the server publishes and which tool to call.",
		Content: `# cairn: Agent Docs Index

## Quick start

1. ` + "`start_session`" + ` with role Scientist or Funder.
2. ` + "`list_projects`" + ` (filters: domain, tag, owner, state) to browse.
3. ` + "`get_project`" + ` for outputs, proofs and certificate ownership.

## Docs

- ` + "`cairn://docs/states`" + ` explains proof states and what degrades when storage fails.
- ` + "`cairn://docs/documents`" + ` lists the document shapes accepted by write tools.

## Limitations

- Write tools never upload documents. Store them first and pass the address.
- A project missing from listings usually means its metadata could not be fetched in the last pass.
`,
	},
	{
		URI:         "cairn://docs/states",
		Name:        "docs_states",
		Title:       "Proof states and degradation",
		Description: "How proof states are derived and how partial failures appear.",
		Content: `# Proof states and degradation

| valid | dispute | state    |
|-------|---------|----------|
| true  | any     | Success  |
| false | true    | Disputed |
| false | false   | Waiting  |

Only Waiting proofs can be disputed, and only by the project owner.

## Partial failures

- Metadata unresolvable: the project is absent from that pass.
- Outputs unresolvable: the project is present with an empty outputs list.
- A proof document unresolvable or malformed: that proof is absent.
- A validity read fails: the proof is reported as not valid.
- A token lookup fails: that token shows the zero address with 0 units.
`,
	},
	{
		URI:         "cairn://docs/documents",
		Name:        "docs_documents",
		Title:       "Document shapes",
		Description: "JSON documents referenced by register_project, record_outputs and record_proof.",
		Content: `# Document shapes

## Metadata (register_project)

Required: ` + "`title`" + `, ` + "`description`" + `. Optional: ` + "`created_at`" + ` (RFC 3339 or YYYY-MM-DD), ` + "`organization`" + `, ` + "`url`" + `, ` + "`image_url`" + `, ` + "`tags`" + `, ` + "`domain`" + ` (Robotics, Simulation, Hardware).

## Outputs (record_outputs)

One object or an array of objects with ` + "`description`" + `, optional ` + "`paper_url`" + `, ` + "`resources`" + ` and ` + "`tools`" + `.

## Proof (record_proof)

Required: ` + "`description`" + `, ` + "`code_url`" + `, ` + "`output_url`" + `. Optional: ` + "`video_url`" + `.

## Dispute (dispute_proof)

Any JSON document explaining the dispute.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
