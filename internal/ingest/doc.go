// Package ingest reads the pipeline's raw inputs into dataset tables.
//
// Three formats are supported: delimited text (sales), JSON (product
// metadata) and Excel workbooks (region metadata). Each source is loaded
// independently by Loader.LoadAll; a source that cannot be read is reported
// in Result.Failures and left absent so the rest of the run can continue.
//
// All file access goes through an afero.Fs, which lets tests run entirely in
// memory.
package ingest
