// Package hcl provides the HCL implementation of config.Loader for the
// projects file. It is responsible for file discovery, parsing, expression
// evaluation and translation of the decoded blocks into config.Model.
package hcl
