// Package firmware serves and fetches firmware images from a catalog
// directory over HTTP.
//
// The catalog is a flat directory holding image files and one JSON metadata
// file per release. The newest release is the metadata file that sorts last
// by name, so names such as "v1.2.0.json" or "2024-06-01.json" order
// naturally.
//
//	GET /api/firmware         newest metadata document
//	GET /firmware/{filename}  file download
//
// Errors are JSON objects of the form {"error": "..."}.
package firmware
