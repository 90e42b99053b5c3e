// Package git reads the revision of the content directory's repository so
// build reports and history can name the commit a site was built from.
package git
