package analyzer

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/apigovern/gatekeeper/domain"
	"github.com/charmbracelet/log"
)

// SimilarityResult pairs an indexed API with its estimated similarity to the
// query signature.
type SimilarityResult struct {
	APIUUID    string  `json:"apiUuid"`
	Similarity float64 `json:"similarity"`
}

// LSHIndex is an in-memory banded index over MinHash signatures. Signatures
// are split into bands; two APIs become candidates when any band matches
// exactly. A single RWMutex guards all interior maps.
type LSHIndex struct {
	numBands        int
	rowsPerBand     int
	signatureLength int

	mu            sync.RWMutex
	bandTables    []map[string]map[string]struct{}
	signatures    map[string][]uint32
	organizations map[string]string
}

// NewLSHIndex creates an index for signatures of the given length split into
// numBands bands. Invalid arguments fall back to the defaults. Leftover
// signature cells beyond numBands*rowsPerBand never participate in banding.
func NewLSHIndex(numBands, signatureLength int) *LSHIndex {
	if numBands <= 0 {
		numBands = domain.DefaultNumBands
	}
	if signatureLength <= 0 {
		signatureLength = domain.DefaultNumHashFunctions
	}
	if numBands > signatureLength {
		numBands = signatureLength
	}
	if signatureLength%numBands != 0 {
		log.Warn("signature length is not a multiple of the band count, trailing cells are ignored",
			"signatureLength", signatureLength, "numBands", numBands)
	}

	bandTables := make([]map[string]map[string]struct{}, numBands)
	for i := range bandTables {
		bandTables[i] = make(map[string]map[string]struct{})
	}

	return &LSHIndex{
		numBands:        numBands,
		rowsPerBand:     signatureLength / numBands,
		signatureLength: signatureLength,
		bandTables:      bandTables,
		signatures:      make(map[string][]uint32),
		organizations:   make(map[string]string),
	}
}

// bandKey renders one band of a signature as its decimal cells joined by
// underscores.
func (idx *LSHIndex) bandKey(sig []uint32, band int) string {
	var sb strings.Builder
	start := band * idx.rowsPerBand
	for i := start; i < start+idx.rowsPerBand; i++ {
		sb.WriteString(strconv.FormatUint(uint64(sig[i]), 10))
		sb.WriteByte('_')
	}
	return sb.String()
}

// Insert adds a signature to the index. Inserting an already-indexed API
// replaces its previous signature and band memberships.
func (idx *LSHIndex) Insert(apiUUID, organization string, sig []uint32) error {
	if len(sig) != idx.signatureLength {
		return domain.NewLengthMismatchError(idx.signatureLength, len(sig))
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if old, exists := idx.signatures[apiUUID]; exists {
		idx.removeLocked(apiUUID, old)
	}

	idx.signatures[apiUUID] = sig
	idx.organizations[apiUUID] = organization
	for band := 0; band < idx.numBands; band++ {
		key := idx.bandKey(sig, band)
		bucket, ok := idx.bandTables[band][key]
		if !ok {
			bucket = make(map[string]struct{})
			idx.bandTables[band][key] = bucket
		}
		bucket[apiUUID] = struct{}{}
	}
	return nil
}

// Remove deletes an API from the index. Removing an unknown API is a no-op.
func (idx *LSHIndex) Remove(apiUUID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	sig, exists := idx.signatures[apiUUID]
	if !exists {
		return
	}
	idx.removeLocked(apiUUID, sig)
}

func (idx *LSHIndex) removeLocked(apiUUID string, sig []uint32) {
	for band := 0; band < idx.numBands; band++ {
		key := idx.bandKey(sig, band)
		if bucket, ok := idx.bandTables[band][key]; ok {
			delete(bucket, apiUUID)
			if len(bucket) == 0 {
				delete(idx.bandTables[band], key)
			}
		}
	}
	delete(idx.signatures, apiUUID)
	delete(idx.organizations, apiUUID)
}

// FindCandidates returns the APIs of the given organization sharing at least
// one band with the query signature, sorted by uuid.
func (idx *LSHIndex) FindCandidates(organization string, sig []uint32) ([]string, error) {
	if len(sig) != idx.signatureLength {
		return nil, domain.NewLengthMismatchError(idx.signatureLength, len(sig))
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	seen := make(map[string]struct{})
	for band := 0; band < idx.numBands; band++ {
		for apiUUID := range idx.bandTables[band][idx.bandKey(sig, band)] {
			if idx.organizations[apiUUID] != organization {
				continue
			}
			seen[apiUUID] = struct{}{}
		}
	}

	candidates := make([]string, 0, len(seen))
	for apiUUID := range seen {
		candidates = append(candidates, apiUUID)
	}
	sort.Strings(candidates)
	return candidates, nil
}

// FindSimilar estimates the similarity of every candidate and keeps those at
// or above threshold, sorted by similarity descending with uuid as the
// tiebreaker.
func (idx *LSHIndex) FindSimilar(organization string, sig []uint32, threshold float64) ([]SimilarityResult, error) {
	candidates, err := idx.FindCandidates(organization, sig)
	if err != nil {
		return nil, err
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	results := make([]SimilarityResult, 0, len(candidates))
	for _, apiUUID := range candidates {
		stored, ok := idx.signatures[apiUUID]
		if !ok {
			continue
		}
		similarity, err := estimateSimilarity(sig, stored)
		if err != nil {
			return nil, err
		}
		if similarity >= threshold {
			results = append(results, SimilarityResult{APIUUID: apiUUID, Similarity: similarity})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].APIUUID < results[j].APIUUID
	})
	return results, nil
}

// Contains reports whether an API is indexed.
func (idx *LSHIndex) Contains(apiUUID string) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	_, ok := idx.signatures[apiUUID]
	return ok
}

// GetSignature returns the stored signature for an API.
func (idx *LSHIndex) GetSignature(apiUUID string) ([]uint32, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	sig, ok := idx.signatures[apiUUID]
	return sig, ok
}

// APIsByOrganization returns the indexed APIs of one organization, sorted by
// uuid.
func (idx *LSHIndex) APIsByOrganization(organization string) []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var apis []string
	for apiUUID, org := range idx.organizations {
		if org == organization {
			apis = append(apis, apiUUID)
		}
	}
	sort.Strings(apis)
	return apis
}

// Size returns the number of indexed APIs.
func (idx *LSHIndex) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.signatures)
}

// Clear empties the index.
func (idx *LSHIndex) Clear() {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for i := range idx.bandTables {
		idx.bandTables[i] = make(map[string]map[string]struct{})
	}
	idx.signatures = make(map[string][]uint32)
	idx.organizations = make(map[string]string)
}

// IndexStats summarizes the shape of the index.
type IndexStats struct {
	NumAPIs          int `json:"numApis"`
	NumOrganizations int `json:"numOrganizations"`
	NumBands         int `json:"numBands"`
	RowsPerBand      int `json:"rowsPerBand"`
	SignatureLength  int `json:"signatureLength"`
}

// Stats returns a snapshot of the index shape.
func (idx *LSHIndex) Stats() IndexStats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	orgs := make(map[string]struct{}, len(idx.organizations))
	for _, org := range idx.organizations {
		orgs[org] = struct{}{}
	}
	return IndexStats{
		NumAPIs:          len(idx.signatures),
		NumOrganizations: len(orgs),
		NumBands:         idx.numBands,
		RowsPerBand:      idx.rowsPerBand,
		SignatureLength:  idx.signatureLength,
	}
}
