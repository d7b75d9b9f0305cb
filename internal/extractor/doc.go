// Package extractor turns fetched HTML into the denoised, structured page
// content the audit stages consume: classified links, contact links, metas,
// visible text and a markdown outline.
package extractor
