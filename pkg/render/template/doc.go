// Package template defines the renderer seam used for file based views and
// hosts the pongo2 adapter in the gotemplate subpackage.
package template
