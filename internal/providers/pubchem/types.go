// Package pubchem provides a provider adapter for the PubChem PUG REST API.
//
// PubChem is NCBI's open chemistry database. Searching is a two-step
// protocol: a name lookup returns compound identifiers (CIDs), then a
// property request returns compound metadata for a CID batch.
//
// API Documentation: https://pubchem.ncbi.nlm.nih.gov/docs/pug-rest
package pubchem

// CIDResponse represents the response of a name-to-CID lookup.
type CIDResponse struct {
	IdentifierList IdentifierList `json:"IdentifierList"`
}

// IdentifierList holds the compound identifiers matching a name query.
type IdentifierList struct {
	CID []int64 `json:"CID"`
}

// PropertyResponse represents the response of a property request.
type PropertyResponse struct {
	PropertyTable PropertyTable `json:"PropertyTable"`
}

// PropertyTable holds the requested properties per compound.
type PropertyTable struct {
	Properties []CompoundProperties `json:"Properties"`
}

// CompoundProperties contains the metadata requested for one compound.
type CompoundProperties struct {
	CID              int64  `json:"CID"`
	Title            string `json:"Title"`
	IUPACName        string `json:"IUPACName"`
	MolecularFormula string `json:"MolecularFormula"`
	CanonicalSMILES  string `json:"CanonicalSMILES"`
}

// FaultResponse represents a PUG REST error payload.
type FaultResponse struct {
	Fault Fault `json:"Fault"`
}

// Fault holds the error code and message of a failed PUG REST call.
type Fault struct {
	Code    string   `json:"Code"`
	Message string   `json:"Message"`
	Details []string `json:"Details"`
}
