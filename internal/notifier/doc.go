// Package notifier delivers typhoon day-off status changes to people.
//
// Every channel implements Notifier. TwitterNotifier posts one tweet per
// change over the v1.1 API with OAuth1, TelegramNotifier sends one HTML
// message per change, DryRunNotifier prints what would be sent, and Multi
// fans a batch out to several channels at once, recording each outcome in
// the notification metrics.
package notifier
