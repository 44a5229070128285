// Package report renders payroll and GWA results as fixed-width text for
// terminals. Amounts use English number formatting with thousands
// separators.
package report
