package server

// Lines sent to participants. Formats take names in the order they appear.
const (
	noticeNamePrompt   = "Conexión establecida. Introduce tu nombre de usuario:"
	noticeAdminGranted = "Nivel de administrador concedido."
	noticeJoined       = "%s se ha unido al chat."
	noticeWelcome      = "¡Bienvenido %s! Escribe /help para ver los comandos."
	noticeLeft         = "%s ha abandonado el chat."
	noticeShutdown     = "El servidor se está cerrando."
	noticeLineTooLong  = "Error: línea demasiado larga, se ha descartado."

	noticeRenamed     = "%s ahora es %s"
	noticeRenamedSelf = "Tu nombre ha sido cambiado a: %s"
	noticeNameTaken   = "Error: El nombre '%s' ya está en uso."

	noticeWhisperFrom    = "(Privado de %s): %s"
	noticeWhisperTo      = "(Mensaje a %s): %s"
	noticeWhisperIgnored = "%s no puede recibir tus mensajes (te ha ignorado)."
	noticeWhisperSelf    = "No puedes enviarte mensajes privados a ti mismo."
	noticeUserNotFound   = "Error: Usuario '%s' no encontrado."

	noticeIgnored       = "Ahora estás ignorando a '%s'."
	noticeIgnoreSelf    = "No puedes ignorarte a ti mismo."
	noticeUnignored     = "Ya no estás ignorando a '%s'."
	noticeNotIgnoring   = "No estabas ignorando a '%s'."
	noticeNoPermission  = "No tienes permisos para usar este comando."
	noticeBlockSelf     = "No te puedes bloquear a ti mismo."
	noticeBlockedTarget = "Has sido bloqueado y desconectado por un administrador."
	noticeBlockDone     = "El usuario %s (IP: %s) ha sido bloqueado y expulsado."

	chatLine = "%s: %s"
)

var helpLines = []string{
	"--- LISTA DE COMANDOS DISPONIBLES ---",
	"/help                 - Muestra esta lista de ayuda.",
	"/changename [nuevo]   - Cambia tu nombre de usuario.",
	"/w [usuario] [msg]    - Envía un mensaje privado a [usuario].",
	"/ignore [usuario]     - Oculta todos los mensajes de [usuario].",
	"/unignore [usuario]   - Vuelve a mostrar los mensajes de [usuario].",
	"(cualquier texto)     - Envía un mensaje global a todos.",
	"/exit                 - Te desconecta del chat.",
}

var adminHelpLines = []string{
	"--- COMANDOS DE ADMINISTRADOR ---",
	"/block [usuario]      - Bloquea la IP del usuario y lo expulsa.",
}

const helpFooter = "-----------------------------------------"
