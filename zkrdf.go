// Package zkrdf ties C1-C9 together into the module's public entry points:
// signing a dataset, compiling and proving a SPARQL query over it, and
// verifying the resulting envelope (spec.md §1, SPEC_FULL.md overview).
package zkrdf

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/luxfi/zkrdf/backend"
	"github.com/luxfi/zkrdf/commitment"
	"github.com/luxfi/zkrdf/config"
	"github.com/luxfi/zkrdf/envelope"
	"github.com/luxfi/zkrdf/field"
	"github.com/luxfi/zkrdf/internal/backend/fsbackend"
	"github.com/luxfi/zkrdf/internal/backend/gnarkbackend"
	"github.com/luxfi/zkrdf/internal/zkrdflog"
	"github.com/luxfi/zkrdf/lower"
	"github.com/luxfi/zkrdf/normalize"
	"github.com/luxfi/zkrdf/prover"
	"github.com/luxfi/zkrdf/rdf"
	"github.com/luxfi/zkrdf/signer"
	"github.com/luxfi/zkrdf/sparql"
	"github.com/luxfi/zkrdf/zkerr"
)

// newBackend constructs the Backend registered under cfg.BackendID. It
// lives here rather than in package backend to avoid an import cycle: the
// concrete backends (fsbackend, gnarkbackend) both import backend for its
// Proof/Backend types.
func newBackend(cfg *config.Config, oracle field.Oracle) (backend.Backend, error) {
	switch cfg.BackendID {
	case config.BackendFiatShamirReference:
		return fsbackend.New(oracle), nil
	case config.BackendGnarkGroth16BN254:
		return gnarkbackend.New(cfg), nil
	default:
		return nil, fmt.Errorf("%w: unrecognized backend id %q", zkerr.ErrBackendError, cfg.BackendID)
	}
}

// SignedDataset is a committed dataset plus the signature authenticating
// its root, ready for PrepareProof to compile queries against.
type SignedDataset struct {
	Quads     []rdf.Quad
	Tree      *commitment.Tree
	Oracle    field.Oracle
	Encoder   *rdf.Encoder
	Signer    signer.Signer
	PublicKey signer.PublicKey
	Signature signer.Signature
}

// SignDataset builds the fixed-depth Merkle commitment over quads (C3) and
// signs its root (C4), under cfg's configured hash oracle and signer.
func SignDataset(cfg *config.Config, quads []rdf.Quad, priv []byte) (*SignedDataset, error) {
	oracle, err := field.NewOracle(cfg)
	if err != nil {
		return nil, err
	}
	enc := rdf.NewEncoder(oracle, cfg)
	tree, err := commitment.Build(oracle, enc, cfg.MerkleDepth, quads)
	if err != nil {
		return nil, err
	}
	sgn, err := signer.New(cfg)
	if err != nil {
		return nil, err
	}
	pub, err := signer.PublicKeyFromPrivate(priv)
	if err != nil {
		return nil, err
	}
	root := tree.Commitment(cfg.HashID).Root
	sig, err := sgn.Sign(root, priv)
	if err != nil {
		return nil, err
	}
	return &SignedDataset{
		Quads: quads, Tree: tree, Oracle: oracle, Encoder: enc,
		Signer: sgn, PublicKey: pub, Signature: sig,
	}, nil
}

// Info reports what a query would disclose under cfg without touching any
// dataset (spec.md §6.2).
func Info(queryText string, cfg *config.Config) (envelope.DisclosureInfo, error) {
	a, err := sparql.Parse(queryText)
	if err != nil {
		return envelope.DisclosureInfo{}, err
	}
	res, err := normalize.Normalize(a, cfg)
	if err != nil {
		return envelope.DisclosureInfo{}, err
	}
	return envelope.Info(res, cfg), nil
}

// PrepareProof compiles queryText against ds (C5-C7), searches for a
// witness (C8), and produces a disclosure envelope with a backend proof
// (C9).
func PrepareProof(ctx context.Context, cfg *config.Config, queryText string, ds *SignedDataset) (*envelope.Envelope, error) {
	log := zkrdflog.Named("zkrdf")
	a, err := sparql.Parse(queryText)
	if err != nil {
		log.Error().Err(err).Msg("parse failed")
		return nil, err
	}
	res, err := normalize.Normalize(a, cfg)
	if err != nil {
		return nil, err
	}

	lds := lower.Dataset{Commitment: ds.Tree.Commitment(cfg.HashID), PublicKey: encodePublicKey(ds.PublicKey)}
	prog, err := lower.Lower(res, lds, ds.Oracle, ds.Encoder, cfg)
	if err != nil {
		return nil, err
	}
	if err := prog.Validate(); err != nil {
		return nil, err
	}

	pds := prover.Dataset{Quads: ds.Quads, Tree: ds.Tree, Oracle: ds.Oracle, Encoder: ds.Encoder}
	w, err := prover.Prove(ctx, prog, pds)
	if err != nil {
		return nil, err
	}

	b, err := newBackend(cfg, ds.Oracle)
	if err != nil {
		return nil, err
	}
	proof, err := b.Prove(ctx, prog, w, cfg)
	if err != nil {
		log.Error().Err(err).Str("backend", string(cfg.BackendID)).Msg("backend prove failed")
		return nil, err
	}
	log.Info().Strs("variables", prog.Variables).Msg("proof prepared")

	return &envelope.Envelope{
		Version:         envelope.Version,
		QueryText:       queryText,
		NormalizedQuery: fmt.Sprintf("%+v", res.Algebra),
		Config:          *cfg,
		Roots:           prog.Roots,
		PublicKeys:      []signer.PublicKey{ds.PublicKey},
		Signatures:      []signer.Signature{ds.Signature},
		Variables:       prog.Variables,
		Bindings:        w.Bindings,
		Proof:           *proof,
		PostProc:        res.PostProc,
	}, nil
}

// VerifyEnvelope checks e against the same query it claims to answer: it
// re-runs C5-C6 (parsing and lowering never touch secret data) to recover
// the constraint.Program whose public inputs e discloses, then checks the
// dataset signature and backend proof (C9).
func VerifyEnvelope(ctx context.Context, e *envelope.Envelope) (*envelope.VerificationResult, error) {
	log := zkrdflog.Named("zkrdf")
	cfg := e.Config
	a, err := sparql.Parse(e.QueryText)
	if err != nil {
		return nil, err
	}
	res, err := normalize.Normalize(a, &cfg)
	if err != nil {
		return nil, err
	}
	if len(e.Roots) != 1 {
		return nil, fmt.Errorf("%w: multi-dataset queries are not yet supported", zkerr.ErrVerifyFailed)
	}
	lds := lower.Dataset{
		Commitment: commitment.Commitment{Root: e.Roots[0], Depth: cfg.MerkleDepth, HashID: cfg.HashID},
		PublicKey:  encodePublicKey(e.PublicKeys[0]),
	}
	oracle, err := field.NewOracle(&cfg)
	if err != nil {
		return nil, err
	}
	enc := rdf.NewEncoder(oracle, &cfg)
	prog, err := lower.Lower(res, lds, oracle, enc, &cfg)
	if err != nil {
		return nil, err
	}

	sgn, err := signer.New(&cfg)
	if err != nil {
		return nil, err
	}
	b, err := newBackend(&cfg, oracle)
	if err != nil {
		return nil, err
	}
	vres, err := envelope.Verify(ctx, e, prog, sgn, b)
	if err != nil {
		log.Error().Err(err).Msg("envelope verification failed")
		return nil, err
	}
	log.Info().Msg("envelope verified")
	return vres, nil
}

// ProveAll runs PrepareProof for each query independently and in parallel,
// stopping at the first failure (spec.md's batch-proving convenience; the
// queries share no state, so there is nothing to serialize).
func ProveAll(ctx context.Context, cfg *config.Config, queries []string, ds *SignedDataset) ([]*envelope.Envelope, error) {
	envelopes := make([]*envelope.Envelope, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	for i, q := range queries {
		i, q := i, q
		g.Go(func() error {
			e, err := PrepareProof(gctx, cfg, q, ds)
			if err != nil {
				return fmt.Errorf("query %d: %w", i, err)
			}
			envelopes[i] = e
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return envelopes, nil
}

// encodePublicKey folds a signer.PublicKey's bytes into a field element for
// the constraint program's disclosed-public-key slot (spec.md §6.1: a proof
// attests the dataset was signed under this encoded key).
func encodePublicKey(pub signer.PublicKey) field.Element {
	return field.SetBytes(pub)
}
