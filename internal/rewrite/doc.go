// Package rewrite turns the remote links of a page body into local relative
// paths.
//
// Rules, applied in order to elements without a styling class unless noted:
//
//  1. <a href=".../display/<space>/<title>">  -> allocated page file name
//  2. <a href=".../x/<hash>">                  -> <page id>.html (tiny URL resolved)
//  3. <a href="...viewpage.action?pageId=N">   -> <N>.html
//  4. <a class="confluence-embedded-file">     -> <download folder>/<attachment name>
//  5. <img src=".../download/..."> and generated previews -> same as 4, plus alt
//
// All rewritten targets are percent-encoded per path segment.
package rewrite
