package core

import (
	"context"
	"sort"
)

// ReasonLicenceNotFound is reported for rows whose licence the authority
// does not know.
const ReasonLicenceNotFound = "licence not found in authority registry"

// CrossValidation is the result of checking records against the authority.
type CrossValidation struct {
	Matched  map[int]AuthorityMetadata
	Rejected map[int]string
}

// CrossValidate looks up every distinct licence number of records with a
// single call to client. Records whose licence is unknown are rejected. Any
// client error aborts the whole step as an upstream failure; no partial
// result is returned.
func CrossValidate(ctx context.Context, client AuthorityClient, records map[int]CandidateRecord) (CrossValidation, error) {
	res := CrossValidation{
		Matched:  make(map[int]AuthorityMetadata, len(records)),
		Rejected: make(map[int]string),
	}
	if len(records) == 0 {
		return res, nil
	}

	seen := make(map[string]struct{}, len(records))
	licences := make([]string, 0, len(records))
	for _, rec := range records {
		if _, ok := seen[rec.LicenceNumber]; ok {
			continue
		}
		seen[rec.LicenceNumber] = struct{}{}
		licences = append(licences, rec.LicenceNumber)
	}
	sort.Strings(licences)

	found, err := client.Lookup(ctx, licences)
	if err != nil {
		return CrossValidation{}, upstreamFailure(StageAuthority, err)
	}

	for idx, rec := range records {
		meta, ok := found[rec.LicenceNumber]
		if !ok {
			res.Rejected[idx] = ReasonLicenceNotFound
			continue
		}
		res.Matched[idx] = meta
	}
	return res, nil
}
