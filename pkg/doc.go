// Package pkg provides the core libraries for tokenforge collection generation.
//
// # Overview
//
// tokenforge stacks one image layer per trait category into a token image and
// writes a metadata record next to it. The pkg directory is organized as:
//
//  1. [config], [catalog] - run configuration and layer discovery
//  2. [sampler], [constraint], [ledger] - picking unique, allowed combinations
//  3. [compose], [io], [cache] - decoding, blending and encoding images
//  4. [metadata] - metadata records and their writers (files, MongoDB)
//  5. [generator] - the concurrent run that ties everything together
//  6. [report] - auditing a generated collection
//
// # Architecture
//
// The data flow of a generate run:
//
//	config.yaml
//	     ↓
//	[catalog] scan layer directories
//	     ↓
//	[sampler] weighted pick per category  →  [constraint] forbidden pairs
//	     ↓
//	[ledger] reserve the pattern key (memory or Redis)
//	     ↓
//	[compose] alpha-blend layers bottom to top
//	     ↓
//	<id>.png + <id>.json (+ MongoDB)
//
// # Quick Start
//
//	cfg, _ := config.Load("config.yaml")
//	cfg.SetDefaults()
//	cat, _ := catalog.Load(cfg.Layers)
//
//	runner := generator.NewRunner(cat, cfg.ForbiddenPairs(), logger)
//	runner.Builder = metadata.NewBuilder(cfg.Metadata)
//	runner.Sink = generator.NewFileSink(cfg.Output.ImageDir, io.PNGOptions{},
//	    metadata.NewFileWriter(cfg.Output.MetadataDir))
//
//	result, err := runner.Run(ctx, generator.Options{Count: cfg.Count})
//
// [config]: https://pkg.go.dev/github.com/matzehuels/tokenforge/pkg/config
// [catalog]: https://pkg.go.dev/github.com/matzehuels/tokenforge/pkg/catalog
// [sampler]: https://pkg.go.dev/github.com/matzehuels/tokenforge/pkg/sampler
// [constraint]: https://pkg.go.dev/github.com/matzehuels/tokenforge/pkg/constraint
// [ledger]: https://pkg.go.dev/github.com/matzehuels/tokenforge/pkg/ledger
// [compose]: https://pkg.go.dev/github.com/matzehuels/tokenforge/pkg/compose
// [io]: https://pkg.go.dev/github.com/matzehuels/tokenforge/pkg/io
// [cache]: https://pkg.go.dev/github.com/matzehuels/tokenforge/pkg/cache
// [metadata]: https://pkg.go.dev/github.com/matzehuels/tokenforge/pkg/metadata
// [generator]: https://pkg.go.dev/github.com/matzehuels/tokenforge/pkg/generator
// [report]: https://pkg.go.dev/github.com/matzehuels/tokenforge/pkg/report
package pkg
