// Package attachment downloads page attachments, thumbnails and generated
// previews into a space's download folder.
//
// Local names are derived from the remote download URL (see DeriveFileName)
// and made unique through the download folder's filename.Scope. A file that
// already exists on disk is never downloaded again.
package attachment
