// Package listing reads the secondary movie source: an HTML page of
// release tables such as Wikipedia's "List of American films of <year>".
//
// Pages are fetched with colly, or with headless Chrome when the page needs
// JavaScript, and parsed with goquery. Release tables use rowspans, so rows
// carry fewer cells once the month or day has been given; the parser carries
// the last month and day forward.
package listing
