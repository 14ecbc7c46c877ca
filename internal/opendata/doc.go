// Package opendata fetches WDFW fish plant records from the Washington open data portal
// and attaches them to high lakes.
//
// The portal serves the "WDFW-Fish Plants" dataset through the Socrata API, paged with
// $limit and $offset. Records carry the county and elevation of the release site, which is
// how they are matched to lakes scraped from the WDFW website.
package opendata
