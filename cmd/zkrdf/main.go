// Command zkrdf is a thin CLI wrapper over the module's public entry
// points: sign a dataset, prove a query against it, verify a resulting
// envelope, and inspect what a query would disclose before proving it.
// Quads are read as CBOR files (spec.md §1 puts RDF surface-syntax parsing
// out of scope) produced by any caller of rdf.Quad directly; the private key
// file holds the raw key bytes.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"

	"github.com/luxfi/zkrdf"
	"github.com/luxfi/zkrdf/commitment"
	"github.com/luxfi/zkrdf/config"
	"github.com/luxfi/zkrdf/envelope"
	"github.com/luxfi/zkrdf/field"
	"github.com/luxfi/zkrdf/internal/zkrdflog"
	"github.com/luxfi/zkrdf/rdf"
	"github.com/luxfi/zkrdf/zkerr"
)

var log = zkrdflog.Named("cmd")

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	var err error
	switch os.Args[1] {
	case "sign":
		err = runSign(os.Args[2:])
	case "prove":
		err = runProve(os.Args[2:])
	case "verify":
		err = runVerify(os.Args[2:])
	case "info":
		err = runInfo(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(exitCode(err))
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: zkrdf <sign|prove|verify|info> [flags]")
}

// exitCode maps a zkerr.Kind to a distinct process exit status, so scripts
// driving this CLI can branch on failure category without parsing stderr.
func exitCode(err error) int {
	switch zkerr.Classify(err) {
	case zkerr.KindInput:
		return 10
	case zkerr.KindSemantic:
		return 11
	case zkerr.KindWitness:
		return 12
	case zkerr.KindProof:
		return 13
	case zkerr.KindControl:
		return 14
	default:
		return 1
	}
}

func readCBOR(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return cbor.Unmarshal(data, v)
}

func writeCBOR(path string, v interface{}) error {
	data, err := cbor.Marshal(v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func runSign(args []string) error {
	fs := flag.NewFlagSet("sign", flag.ExitOnError)
	quadsPath := fs.String("quads", "", "CBOR file holding a []rdf.Quad")
	privPath := fs.String("key", "", "private key bytes")
	depth := fs.Uint("depth", 20, "Merkle depth")
	out := fs.String("out", "dataset.cbor", "output dataset file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var quads []rdf.Quad
	if err := readCBOR(*quadsPath, &quads); err != nil {
		return fmt.Errorf("reading quads: %w", err)
	}
	priv, err := os.ReadFile(*privPath)
	if err != nil {
		return fmt.Errorf("reading key: %w", err)
	}
	cfg, err := config.New(config.WithMerkleDepth(uint8(*depth)))
	if err != nil {
		return err
	}
	ds, err := zkrdf.SignDataset(cfg, quads, priv)
	if err != nil {
		return err
	}
	log.Info().Int("quads", len(quads)).Str("root", ds.Tree.Commitment(cfg.HashID).Root.Hex()).Msg("dataset signed")
	return writeCBOR(*out, datasetWire{Quads: quads, Config: *cfg, PublicKey: ds.PublicKey, Signature: ds.Signature})
}

// datasetWire is the on-disk shape for a signed dataset: just enough to
// rebuild a SignedDataset (the Merkle tree is cheap to recompute from
// Quads+Config, so it is not itself serialized).
type datasetWire struct {
	Quads     []rdf.Quad
	Config    config.Config
	PublicKey []byte
	Signature []byte
}

// rebuildTree recomputes the live oracle/encoder/Merkle tree a serialized
// datasetWire omits: both are cheap pure functions of Config+Quads, so only
// the quads themselves (plus the signature over the resulting root) need to
// round-trip through disk.
func rebuildTree(cfg *config.Config, quads []rdf.Quad) (field.Oracle, *rdf.Encoder, *commitment.Tree, error) {
	oracle, err := field.NewOracle(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	enc := rdf.NewEncoder(oracle, cfg)
	tree, err := commitment.Build(oracle, enc, cfg.MerkleDepth, quads)
	if err != nil {
		return nil, nil, nil, err
	}
	return oracle, enc, tree, nil
}

func loadDataset(path string) (*zkrdf.SignedDataset, error) {
	var dw datasetWire
	if err := readCBOR(path, &dw); err != nil {
		return nil, err
	}
	oracle, enc, tree, err := rebuildTree(&dw.Config, dw.Quads)
	if err != nil {
		return nil, err
	}
	return &zkrdf.SignedDataset{
		Quads: dw.Quads, Tree: tree, Oracle: oracle, Encoder: enc,
		PublicKey: dw.PublicKey, Signature: dw.Signature,
	}, nil
}

func runProve(args []string) error {
	fs := flag.NewFlagSet("prove", flag.ExitOnError)
	datasetPath := fs.String("dataset", "", "signed dataset file from 'sign'")
	queryPath := fs.String("query", "", "SPARQL query file")
	out := fs.String("out", "envelope.cbor", "output envelope file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	ds, err := loadDataset(*datasetPath)
	if err != nil {
		return fmt.Errorf("loading dataset: %w", err)
	}
	queryText, err := os.ReadFile(*queryPath)
	if err != nil {
		return fmt.Errorf("reading query: %w", err)
	}
	var dw datasetWire
	if err := readCBOR(*datasetPath, &dw); err != nil {
		return err
	}
	e, err := zkrdf.PrepareProof(context.Background(), &dw.Config, string(queryText), ds)
	if err != nil {
		return err
	}
	log.Info().Strs("variables", e.Variables).Msg("proof prepared")
	return writeCBOR(*out, e)
}

func runVerify(args []string) error {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	envPath := fs.String("envelope", "", "envelope file from 'prove'")
	if err := fs.Parse(args); err != nil {
		return err
	}
	var e envelope.Envelope
	if err := readCBOR(*envPath, &e); err != nil {
		return fmt.Errorf("reading envelope: %w", err)
	}
	res, err := zkrdf.VerifyEnvelope(context.Background(), &e)
	if err != nil {
		return err
	}
	for name, v := range res.Bindings {
		fmt.Printf("%s = %s\n", name, v.Hex())
	}
	return nil
}

func runInfo(args []string) error {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	queryPath := fs.String("query", "", "SPARQL query file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	queryText, err := os.ReadFile(*queryPath)
	if err != nil {
		return err
	}
	cfg, err := config.New()
	if err != nil {
		return err
	}
	info, err := zkrdf.Info(string(queryText), cfg)
	if err != nil {
		return err
	}
	fmt.Printf("projected variables: %v\n", info.ProjectedVariables)
	fmt.Printf("post-processing: %+v\n", info.PostProc)
	fmt.Printf("backend: %s\n", info.RequiresBackend)
	return nil
}
