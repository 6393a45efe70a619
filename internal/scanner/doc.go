// Package scanner implements the probing engine: the HTTP existence
// classifier, the bounded worker pool and the coordinator that aggregates
// results into a scan session.
//
// Classification is a string heuristic reverse-engineered from one server's
// error pages: a body containing "Not found" is absent, a body containing
// "Not a file" is a directory listing and therefore exists, and otherwise
// only HTTP 200 counts as existing. The markers are not a documented
// contract. If the server rewords its error pages the scanner will
// misclassify without any error.
package scanner
