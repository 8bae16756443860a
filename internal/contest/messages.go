package contest

// Reply copy shown to participants. Kept together so the tone stays
// consistent across the flow.
const (
	msgEntryClosed = "Submissions have closed for now. Thank you for wanting to take part! 🙏"

	msgImageClosed = "⏸️ The photo contest has closed.\n\nThank you for joining in! Feel free to share your photos with us privately 🙏"

	msgPhotosOnly = "📷 Sorry, only photos are accepted right now!\n\nPlease upload your best shot 📸"

	msgSelectCategoryFirst = "Please pick a contest category from the menu first! 🎯\n\nThen upload your photo 📸"

	msgUploadRetry = "😅 The network hiccuped, please try again!\n\nIf it keeps failing, wait a few seconds and re-upload 📶"

	msgEntryLocked = "Your entry has already been approved and can no longer be replaced. Thanks for the enthusiasm! 🏆"

	fmtAskNickname = "📸 Photo received!\n\nReply with your nickname (up to %d characters) to finish your entry.\nFor example: Cousin Alex 👇"

	fmtFirstEntry = "You're in! Thanks for entering, %s 🏆"

	fmtUpdatedEntry = "Got it, %s! Your entry has been updated ✨"

	fmtTestModeReceived = "🧪 Test mode: photo received!\n\nAuto name: %s\nCategory: %s\n\nMore uploads go to the same category.\nUse the menu to switch 📸"
)

// entryCommand is the keyword that opens a submission flow from chat text.
const entryCommand = "#entry"
