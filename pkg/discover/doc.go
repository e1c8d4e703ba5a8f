// Package discover scrapes running hosts over ssh for zpools and Lustre
// targets and assembles the findings into a configuration document.
package discover
