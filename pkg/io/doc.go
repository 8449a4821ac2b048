// Package io provides the on-disk formats tokenforge reads and writes:
// metadata records as JSON and token images as PNG.
//
// # Metadata JSON
//
// Every token has one metadata record stored as <metadata_dir>/<id>.json:
//
//	{
//	  "name": "Cat #12",
//	  "description": "A generated cat",
//	  "image": "ipfs://bafy.../12.png",
//	  "edition": 12,
//	  "attributes": [
//	    {"trait_type": "Background", "value": "Blue"},
//	    {"trait_type": "Body", "value": "Tabby"}
//	  ]
//	}
//
// The attribute order mirrors the layer order of the configuration. The
// format is shared with the audit command, which reads records back with
// [ImportDir].
//
// Use [ExportJSON] to write a record to a file, or [WriteJSON] to write to
// any io.Writer. [ImportJSON] and [ReadJSON] are the inverse operations.
//
// # PNG
//
// [ImportPNG] decodes a layer file into an [image.NRGBA] anchored at the
// origin, converting from whatever color model the file uses. [ExportPNG]
// writes a composited token image with an optional compression level in
// the range 0..6:
//
//	err := io.ExportPNG("out/12.png", img, io.PNGOptions{Compress: true, Level: 6})
//
// # Layer Loading
//
// [LayerLoader] combines [ImportPNG] with a decoded-image cache so each layer
// file is decoded once per run, no matter how many tokens use it.
//
// # Concurrency
//
// All functions are safe to call concurrently. Decoded images returned by
// [LayerLoader] are shared between callers and must not be modified.
package io
