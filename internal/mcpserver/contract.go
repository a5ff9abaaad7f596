package mcpserver

// QuerySyntax documents the search and category filter language accepted by
// the search_papers tool and the HTTP search route.
const QuerySyntax = `# glanxiv Query Syntax

A search combines an optional free-text term with an optional list of
category tokens and returns one page of papers, newest first.

## Search term

- Case-insensitive substring match against the title, the abstract and each
  author name.
- The term is used as given: surrounding spaces are part of it.
- An empty term matches every paper.

## Category tokens

Tokens are comma-separated and case-insensitive (` + "`cs,physics`" + `). A paper
passes when it matches ANY token, through its categories or its primary
category.

| Token | Matches |
|---|---|
| ` + "`all`" + ` or no token | every paper |
| ` + "`cs`" + `, ` + "`cs.all`" + ` | ` + "`cs`" + ` itself and every ` + "`cs.*`" + ` code |
| ` + "`cs.AI`" + ` | the subcategory itself and anything nested below it (` + "`cs.AI.x`" + `) |
| ` + "`quant-ph`" + ` and other codes without a main prefix | that exact code |
| anything else | that exact code, compared case-insensitively |

Unknown tokens never fail a query; they simply match nothing unless a paper
carries that literal code.

## Paging

- ` + "`page`" + ` is 1-based, ` + "`limit`" + ` is the page size. Both must be at least 1.
- The result carries ` + "`total`" + ` (all matches), ` + "`totalPages`" + ` and ` + "`hasMore`" + `.
- Pages past the end return an empty list with the same total.

## Examples

- ` + "`q=transformer, category=cs.LG,stat.ML`" + `: transformer papers in machine learning.
- ` + "`category=physics, page=2, limit=20`" + `: second page of all physics papers.
- ` + "`category=math.all`" + `: same as ` + "`math`" + `.
`
