package models

// Devotion is a daily devotion split into the fields the widget renders
type Devotion struct {
	Date     string `json:"date"`
	Title    string `json:"title"`
	Greeting string `json:"greeting"`
	Verse    string `json:"verse"`
	Text     string `json:"text"`
	Closing  string `json:"closing"`
}

// SampleDevotion is shown when no broadcast has been received yet
var SampleDevotion = Devotion{
	Date:     "7/11/2025",
	Title:    "Hard Work and God's Blessing",
	Greeting: "Good morning",
	Verse:    "Proverbs 13:4  The soul of the sluggard desireth, and hath nothing: but the soul of the diligent shall be made fat.",
	Text: "Hard work is the key to success but remember, it is God who blesses hard work. Hard work without God is in vain. " +
		"The Apostle Peter learned that the hard way in the scripture of John 21:1-7. God is the one who blesses our hard work. " +
		"When we are lazy and hate hard work, our work will constantly be admiring what others have. " +
		"It is time to stop admiring, it is time to arise and work hard, trusting God to surprise us and bless us. " +
		"As long as we call upon Him as we work hard, He will not fail us. Our hard work is not what brings about success but it is God. " +
		"As long as we trust in Him. As you go out to work today. Speak to God first and see what He does.",
	Closing: "Have a blessed day and may God bless you. TY.......",
}

// ShareLinks holds the prebuilt share targets for one devotion
type ShareLinks struct {
	WhatsApp  string `json:"whatsapp"`
	Facebook  string `json:"facebook"`
	Twitter   string `json:"twitter"`
	LinkedIn  string `json:"linkedin"`
	Clipboard string `json:"clipboard"`
}
