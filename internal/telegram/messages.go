package telegram

import (
	"fmt"
	"strings"
)

const helpText = `📖 **Help Guide**

**Quick Expense Format:**
• Sabji - 450
• Doodh 80
• Bijli ka bill 2500

**Common Commands:**
• "Income 50000 set karo"
• "Kitne paise bache?"
• "Is mahine ka total?"
• "Last mahine ka kharcha?"
• "Sabji me kitna gaya?"
• "Recent expenses dikhao"
• "Last wala expense delete karo"

**Categories:**
🥬 sabji, 🪔 pooja_saman, 🥛 doodh
💡 bijli_bill, 💧 pani_bill, 📱 mobile_recharge
🏥 medical, 🚗 transport, 👕 kapde
🏠 ghar_ka_saman, 🍽️ bahar_khana

Koi bhi sawaal? Seedha message karo! 😊`

const apologyText = "😅 Sorry, kuch problem ho gayi. Thoda baad me phir se try karo.\n\n" +
	"Agar problem bani rahe, toh /help dekho ya /start se shuru karo."

const slowDownText = "⏳ Thoda dheere! Bahut saare messages ek saath aa gaye. Ek minute baad phir se bhejo."

const emptyReplyText = "🤔 Samajh nahi aaya. Thoda detail me batao?"

func welcomeText(firstName string) string {
	if strings.TrimSpace(firstName) == "" {
		firstName = "User"
	}
	return fmt.Sprintf(`🙏 Namaste %s!

Main aapka Hisaab Bot hoon 💰

**Kaise use karein:**

📝 Expense add karne ke liye:
• Sabji - 450
• Pooja saman 350
• Bijli bill 2500

💵 Budget set karein:
• "Is mahine ki income 50000 hai"

📊 Dekhne ke liye:
• "Abhi kitne paise bache?"
• "Is mahine ka total?"
• "Sabji me kitna gaya?"

Bas seedhe message karo, main samajh jaunga! 😊`, firstName)
}
